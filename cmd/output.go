package cmd

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// validateFormat は出力形式の指定を検証します。
func validateFormat(format string) error {
	switch strings.ToLower(format) {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("未対応の出力形式です: %s (text, json, yaml)", format)
	}
}

// writeOutput は指定形式で v を書き出します。text の場合は render を使います。
func writeOutput(w io.Writer, format string, v interface{}, render func(io.Writer) error) error {
	switch strings.ToLower(format) {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON への変換に失敗しました: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("YAML への変換に失敗しました: %w", err)
		}
		return enc.Close()
	default:
		return render(w)
	}
}
