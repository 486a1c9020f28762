package backupmeta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// CompletionInfo records when a backup operation finished and whether any
// paths were skipped along the way.
type CompletionInfo struct {
	EndTime      time.Time // UTC
	PathsSkipped bool
}

// CompletionInfoParseError is returned when a completion-info file cannot
// be parsed.
type CompletionInfoParseError struct {
	FilePath string
	Reason   string
}

func (e *CompletionInfoParseError) Error() string {
	return fmt.Sprintf("failed to parse backup completion info file %q: %s", e.FilePath, e.Reason)
}

// WriteCompletionInfo writes completion information to path, pretty-printed
// with 4-space indent.
func WriteCompletionInfo(path string, value CompletionInfo) error {
	doc := struct {
		EndTime      string `json:"end_time"`
		PathsSkipped bool   `json:"paths_skipped"`
	}{
		EndTime:      formatISO8601(value.EndTime),
		PathsSkipped: value.PathsSkipped,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return os.WriteFile(path, bytes.TrimRight(buf.Bytes(), "\n"), 0644)
}

// ReadCompletionInfo reads completion information from path. Readers that
// only need to know whether a backup finished should treat any error from
// this function as "completion unknown", not as a reason to reject the
// backup (see backupmeta.Metadata).
func ReadCompletionInfo(path string) (CompletionInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CompletionInfo{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return CompletionInfo{}, &CompletionInfoParseError{FilePath: path, Reason: err.Error()}
	}
	if len(fields) != 2 {
		return CompletionInfo{}, &CompletionInfoParseError{FilePath: path, Reason: `expected fields "end_time" and "paths_skipped"`}
	}

	rawTime, ok := fields["end_time"]
	if !ok {
		return CompletionInfo{}, &CompletionInfoParseError{FilePath: path, Reason: `missing field "end_time"`}
	}
	var timeStr string
	if err := json.Unmarshal(rawTime, &timeStr); err != nil {
		return CompletionInfo{}, &CompletionInfoParseError{FilePath: path, Reason: `field "end_time" must be a string`}
	}
	endTime, err := parseISO8601(timeStr)
	if err != nil {
		return CompletionInfo{}, &CompletionInfoParseError{FilePath: path, Reason: err.Error()}
	}

	rawSkipped, ok := fields["paths_skipped"]
	if !ok {
		return CompletionInfo{}, &CompletionInfoParseError{FilePath: path, Reason: `missing field "paths_skipped"`}
	}
	var skipped bool
	if err := json.Unmarshal(rawSkipped, &skipped); err != nil {
		return CompletionInfo{}, &CompletionInfoParseError{FilePath: path, Reason: `field "paths_skipped" must be a boolean`}
	}

	return CompletionInfo{EndTime: endTime, PathsSkipped: skipped}, nil
}
