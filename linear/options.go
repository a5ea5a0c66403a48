package linear

// Option は LinearRegression を設定する関数です。
type Option func(*LinearRegression)

// WithFitIntercept は切片を推定するかどうかを設定する
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// WithAlpha は L2 正則化の強さを設定する。0 なら通常の最小二乗法
func WithAlpha(alpha float64) Option {
	return func(lr *LinearRegression) {
		lr.alpha = alpha
	}
}

// WithNJobs は並列処理のワーカー数を設定する（-1 で全CPU）
func WithNJobs(n int) Option {
	return func(lr *LinearRegression) {
		lr.nJobs = n
	}
}
