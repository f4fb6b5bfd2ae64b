package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rafaelDom/TestJuridoc/internal/util"
)

// Content types set by the helpers.
const (
	ContentTypeOctetStream = "application/octet-stream"
	ContentTypeJSON        = "application/json"
	ContentTypeHTML        = "text/html"
)

// DefaultAccessMethods are announced when an Access value lists none.
var DefaultAccessMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodOptions,
}

// SetHeader sets a response header.
func SetHeader(out *Output, name, value string) {
	if out.Headers == nil {
		out.Headers = make(http.Header)
	}
	out.Headers.Set(name, value)
}

// SetStatus sets the status code and its reason phrase. Unknown codes are
// rejected.
func SetStatus(out *Output, status int) error {
	message := http.StatusText(status)
	if message == "" {
		return fmt.Errorf("nonexistent status %d can't be set: %w", status, util.ErrInvalidInput)
	}
	out.Status = status
	out.Message = message
	return nil
}

// SetContent sets the body and its content type. An empty type means
// application/octet-stream.
func SetContent(out *Output, data []byte, contentType string) {
	if contentType == "" {
		contentType = ContentTypeOctetStream
	}
	SetHeader(out, "Content-Type", contentType)
	out.Data = data
}

// SetContentAttachment sets the body as a download named name.
func SetContentAttachment(out *Output, name string, data []byte, contentType string) {
	SetHeader(out, "Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	SetContent(out, data, contentType)
}

// SetContentJSON encodes v as the body.
func SetContentJSON(out *Output, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	SetContent(out, data, ContentTypeJSON)
	return nil
}

// statusBody is the JSON body written by SetStatusJSON.
type statusBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// SetStatusJSON sets status and a JSON body carrying it. An empty message
// uses the reason phrase.
func SetStatusJSON(out *Output, status int, message string) error {
	if err := SetStatus(out, status); err != nil {
		return err
	}
	if message == "" {
		message = out.Message
	}
	return SetContentJSON(out, statusBody{Status: status, Message: message})
}

// Access describes the CORS headers of a preflight answer.
type Access struct {
	Origin      string   `json:"origin" yaml:"origin"`
	Credentials bool     `json:"credentials" yaml:"credentials"`
	Methods     []string `json:"methods" yaml:"methods"`
	Headers     []string `json:"headers" yaml:"headers"`
}

// AccessFrom converts an environment value into an Access. It accepts
// Access, *Access and maps with the origin, credentials, methods and
// headers keys. The second result is false when v holds no access rule.
func AccessFrom(v any) (Access, bool) {
	switch a := v.(type) {
	case Access:
		return a.clone(), true
	case *Access:
		if a == nil {
			return Access{}, false
		}
		return a.clone(), true
	case map[string]any:
		access := Access{
			Methods: stringList(a["methods"]),
			Headers: stringList(a["headers"]),
		}
		access.Origin, _ = a["origin"].(string)
		access.Credentials, _ = a["credentials"].(bool)
		return access, true
	default:
		return Access{}, false
	}
}

func (a Access) clone() Access {
	a.Methods = append([]string(nil), a.Methods...)
	a.Headers = append([]string(nil), a.Headers...)
	return a
}

// SetAccessControl writes the Access-Control-Allow-* headers.
func SetAccessControl(out *Output, access Access) {
	origin := access.Origin
	if origin == "" {
		origin = "*"
	}
	methods := access.Methods
	if len(methods) == 0 {
		methods = DefaultAccessMethods
	}
	credentials := "false"
	if access.Credentials {
		credentials = "true"
	}

	SetHeader(out, "Access-Control-Allow-Origin", origin)
	SetHeader(out, "Access-Control-Allow-Credentials", credentials)
	SetHeader(out, "Access-Control-Allow-Methods", strings.Join(methods, ", "))
	SetHeader(out, "Access-Control-Allow-Headers", strings.Join(access.Headers, ", "))
}

// stringList reads a string or a list of strings.
func stringList(v any) []string {
	switch s := v.(type) {
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	case []string:
		return append([]string(nil), s...)
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
