package web

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelDom/TestJuridoc/internal/util"
)

func TestSetStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		message string
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK, message: "OK"},
		{name: "no content", status: http.StatusNoContent, message: "No Content"},
		{name: "not implemented", status: http.StatusNotImplemented, message: "Not Implemented"},
		{name: "unknown status", status: 599, wantErr: true},
		{name: "zero", status: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := NewOutput()
			err := SetStatus(out, tt.status)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, util.ErrInvalidInput)
				assert.Zero(t, out.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.message, out.Message)
		})
	}
}

func TestSetContent(t *testing.T) {
	t.Parallel()

	out := NewOutput()
	SetContent(out, []byte("raw"), "")
	assert.Equal(t, ContentTypeOctetStream, out.Headers.Get("Content-Type"))
	assert.Equal(t, []byte("raw"), out.Data)

	SetContent(out, []byte("<p>"), ContentTypeHTML)
	assert.Equal(t, ContentTypeHTML, out.Headers.Get("Content-Type"))
}

func TestSetContentAttachment(t *testing.T) {
	t.Parallel()

	out := NewOutput()
	SetContentAttachment(out, "report.pdf", []byte("%PDF"), "application/pdf")

	assert.Equal(t, `attachment; filename="report.pdf"`, out.Headers.Get("Content-Disposition"))
	assert.Equal(t, "application/pdf", out.Headers.Get("Content-Type"))
}

func TestSetStatusJSON(t *testing.T) {
	t.Parallel()

	out := NewOutput()
	require.NoError(t, SetStatusJSON(out, http.StatusNotFound, ""))
	assert.Equal(t, http.StatusNotFound, out.Status)
	assert.Equal(t, ContentTypeJSON, out.Headers.Get("Content-Type"))
	assert.JSONEq(t, `{"status":404,"message":"Not Found"}`, string(out.Data))

	require.NoError(t, SetStatusJSON(out, http.StatusInternalServerError, "boom"))
	assert.JSONEq(t, `{"status":500,"message":"boom"}`, string(out.Data))

	assert.Error(t, SetStatusJSON(out, 999, "nope"))
}

func TestSetContentJSON_Unsupported(t *testing.T) {
	t.Parallel()

	assert.Error(t, SetContentJSON(NewOutput(), make(chan int)))
}

func TestSetAccessControl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		access Access
		want   map[string]string
	}{
		{
			name:   "defaults",
			access: Access{},
			want: map[string]string{
				"Access-Control-Allow-Origin":      "*",
				"Access-Control-Allow-Credentials": "false",
				"Access-Control-Allow-Methods":     "GET, POST, PUT, DELETE, OPTIONS",
				"Access-Control-Allow-Headers":     "",
			},
		},
		{
			name: "explicit",
			access: Access{
				Origin:      "https://example.com",
				Credentials: true,
				Methods:     []string{"GET"},
				Headers:     []string{"Content-Type", "Authorization"},
			},
			want: map[string]string{
				"Access-Control-Allow-Origin":      "https://example.com",
				"Access-Control-Allow-Credentials": "true",
				"Access-Control-Allow-Methods":     "GET",
				"Access-Control-Allow-Headers":     "Content-Type, Authorization",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := NewOutput()
			SetAccessControl(out, tt.access)

			for name, value := range tt.want {
				assert.Equal(t, value, out.Headers.Get(name), name)
			}
		})
	}
}

func TestAccessFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  any
		want   Access
		wantOK bool
	}{
		{name: "value", value: Access{Origin: "o"}, want: Access{Origin: "o"}, wantOK: true},
		{name: "pointer", value: &Access{Credentials: true}, want: Access{Credentials: true}, wantOK: true},
		{name: "nil pointer", value: (*Access)(nil)},
		{
			name: "map",
			value: map[string]any{
				"origin":      "https://a.test",
				"credentials": true,
				"methods":     []any{"GET", "POST"},
				"headers":     "X-Token",
			},
			want: Access{
				Origin:      "https://a.test",
				Credentials: true,
				Methods:     []string{"GET", "POST"},
				Headers:     []string{"X-Token"},
			},
			wantOK: true,
		},
		{name: "absent", value: nil},
		{name: "wrong type", value: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := AccessFrom(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want.Origin, got.Origin)
				assert.Equal(t, tt.want.Credentials, got.Credentials)
				assert.ElementsMatch(t, tt.want.Methods, got.Methods)
				assert.ElementsMatch(t, tt.want.Headers, got.Headers)
			}
		})
	}
}

func TestAccessFrom_DoesNotAlias(t *testing.T) {
	t.Parallel()

	shared := Access{Methods: []string{"GET"}}
	got, _ := AccessFrom(shared)
	got.Methods[0] = "POST"
	got.Origin = "changed"

	assert.Equal(t, "GET", shared.Methods[0])
	assert.Empty(t, shared.Origin)
}
