package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, inputFailure(ErrMsgReadStdinFailed, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, inputFailure(ErrMsgReadFileFailed, err)
	}
	return data, nil
}

// writeOutput writes content to a file or stdout
func writeOutput(path string, data []byte, stdout io.Writer) error {
	var err error
	if path == OutputTargetStdout {
		_, err = stdout.Write(data)
	} else {
		err = os.WriteFile(path, data, FilePermissions)
	}
	if err != nil {
		return &cliError{code: ExitCodeRenderError, msg: ErrMsgWriteOutputFailed, err: err}
	}
	return nil
}

// loadData reads the render data from path. An empty path yields an empty
// mapping. The auto format picks YAML for .yaml/.yml files and JSON otherwise.
func loadData(path, format string, stdin io.Reader) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	raw, err := readInput(path, stdin)
	if err != nil {
		return nil, err
	}

	if format == DataFormatAuto {
		format = DataFormatJSON
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = DataFormatYAML
		}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var data any
	switch format {
	case DataFormatYAML:
		err = yaml.Unmarshal(raw, &data)
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		err = dec.Decode(&data)
	}
	if err != nil {
		return nil, inputFailure(ErrMsgInvalidData, err)
	}

	m, ok := data.(map[string]any)
	if !ok {
		return nil, inputFailure(ErrMsgInvalidData, errors.New(ErrMsgDataNotMapping))
	}
	return normalizeNumbers(m), nil
}

// normalizeNumbers turns json.Number values into int or float64 so
// integer data keeps integer semantics in expressions.
func normalizeNumbers(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		return normalizeNumbers(val)
	case []any:
		for i, item := range val {
			val[i] = normalizeValue(item)
		}
		return val
	}
	return v
}
