package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// SaveJSON は v を JSON としてファイルに保存します。
//
//	err := model.SaveJSON(search.Results(), "results.json")
func SaveJSON(v interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()
	return SaveJSONToWriter(v, file)
}

// LoadJSON はファイルから JSON を読み込みます。
func LoadJSON(v interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return LoadJSONFromReader(v, file)
}

// SaveJSONToWriter は v を整形済み JSON として w に書き込みます。
func SaveJSONToWriter(v interface{}, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}
	return nil
}

// LoadJSONFromReader は r から JSON を読み込みます。
func LoadJSONFromReader(v interface{}, r io.Reader) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}
