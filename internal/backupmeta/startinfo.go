package backupmeta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StartInfo records when a backup operation began.
type StartInfo struct {
	StartTime time.Time // UTC
}

// StartInfoParseError is returned when a start-info file cannot be parsed.
type StartInfoParseError struct {
	FilePath string
	Reason   string
}

func (e *StartInfoParseError) Error() string {
	return fmt.Sprintf("failed to parse backup start info file %q: %s", e.FilePath, e.Reason)
}

// WriteStartInfo writes start information to path, pretty-printed with
// 4-space indent, UTF-8, non-ASCII preserved literally.
func WriteStartInfo(path string, value StartInfo) error {
	doc := struct {
		StartTime string `json:"start_time"`
	}{StartTime: formatISO8601(value.StartTime)}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return os.WriteFile(path, bytes.TrimRight(buf.Bytes(), "\n"), 0644)
}

// ReadStartInfo reads start information from path.
func ReadStartInfo(path string) (StartInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StartInfo{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return StartInfo{}, &StartInfoParseError{FilePath: path, Reason: err.Error()}
	}
	if len(fields) != 1 {
		return StartInfo{}, &StartInfoParseError{FilePath: path, Reason: `expected only field "start_time"`}
	}

	rawTime, ok := fields["start_time"]
	if !ok {
		return StartInfo{}, &StartInfoParseError{FilePath: path, Reason: `missing field "start_time"`}
	}
	var timeStr string
	if err := json.Unmarshal(rawTime, &timeStr); err != nil {
		return StartInfo{}, &StartInfoParseError{FilePath: path, Reason: `field "start_time" must be a string`}
	}

	startTime, err := parseISO8601(timeStr)
	if err != nil {
		return StartInfo{}, &StartInfoParseError{FilePath: path, Reason: err.Error()}
	}
	return StartInfo{StartTime: startTime}, nil
}
