package output

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// ErrorOutput is the JSON shape of a failed command.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// NewErrorDetail describes err. Plain errors become GENERAL_ERROR.
func NewErrorDetail(err error) ErrorDetail {
	detail := ErrorDetail{
		Code:     sigilerr.Code(err),
		Message:  err.Error(),
		ExitCode: sigilerr.ExitCode(err),
	}
	var se *sigilerr.SigilError
	if errors.As(err, &se) {
		detail.Details = se.Details
		detail.Suggestion = se.Suggestion
	}
	return detail
}

// FormatError writes err for display. Nil writes nothing.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	detail := NewErrorDetail(err)
	if format == FormatJSON {
		return WriteJSON(w, ErrorOutput{Error: detail})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", detail.Message)
	if len(detail.Details) > 0 {
		keys := make([]string, 0, len(detail.Details))
		for k := range detail.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, detail.Details[k])
		}
	}
	if detail.Suggestion != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", detail.Suggestion)
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}
