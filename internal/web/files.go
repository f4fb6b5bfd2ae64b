package web

import (
	"context"
	_ "embed"
	"fmt"
	"html"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rafaelDom/TestJuridoc/internal/application"
	"github.com/rafaelDom/TestJuridoc/internal/routing"
	"github.com/rafaelDom/TestJuridoc/internal/util"
)

//go:embed assets/error.html
var errorTemplate string

// FileSettings configures the file handler.
type FileSettings struct {
	Directory string
	Index     string
	// Strict refuses files whose extension has no entry in Types. Without
	// it such files are served as application/octet-stream.
	Strict bool
	// Types maps lowercase extensions without the dot to content types.
	Types map[string]string
}

// FileHandler serves static files below a directory.
type FileHandler struct {
	settings FileSettings
}

// FileHandlerType describes FileHandler for the application registry. Its
// constructor takes a FileSettings or *FileSettings.
var FileHandlerType = &application.Type{
	Name: "web.FileHandler",
	New: func(args ...any) (any, error) {
		settings, err := fileSettingsFrom(args)
		if err != nil {
			return nil, err
		}
		handler, err := NewFileHandler(settings)
		if err != nil {
			return nil, err
		}
		return handler, nil
	},
	Routes: []application.Declaration{
		// Any method, so a failed POST still gets the error page.
		application.Processor("ExceptionResponse", application.Action{
			Path:        ExceptionPath,
			Environment: routing.Variables{VariableMethods: "*"},
		}),
		application.Processor("DefaultResponse", application.Action{
			Path:  "/",
			Exact: application.Exact(false),
			Environment: routing.Variables{
				VariableMethods: http.MethodGet,
				VariableAccess:  Access{},
			},
		}),
	},
}

// NewFileHandler creates a file handler.
func NewFileHandler(settings FileSettings) (*FileHandler, error) {
	if settings.Directory == "" {
		return nil, util.NewConfigError("files.directory", "directory is required")
	}
	if settings.Types == nil {
		settings.Types = map[string]string{}
	}
	return &FileHandler{settings: settings}, nil
}

func fileSettingsFrom(args []any) (FileSettings, error) {
	if len(args) == 0 {
		return FileSettings{}, util.NewConfigError("files", "file settings are required")
	}
	switch s := args[0].(type) {
	case FileSettings:
		return s, nil
	case *FileSettings:
		if s != nil {
			return *s, nil
		}
	}
	return FileSettings{}, util.NewConfigError("files", fmt.Sprintf("unexpected settings type %T", args[0]))
}

// Settings returns the handler settings.
func (h *FileHandler) Settings() FileSettings {
	return h.settings
}

// ExceptionResponse answers a failed dispatch with a 500 error page.
func (h *FileHandler) ExceptionResponse(_ context.Context, m *Match) error {
	request := m.Detail()
	return h.setResponseError(request.Output(), http.StatusInternalServerError, exceptionOf(request))
}

// DefaultResponse serves the index for "/" and the requested file for any
// other path.
func (h *FileHandler) DefaultResponse(_ context.Context, m *Match) error {
	request := m.Detail()

	name := path.Clean("/" + request.Path())
	if request.Path() == "/" {
		name = path.Base(h.settings.Index)
	}

	return h.setResponseFile(request.Output(), name)
}

// MimeType returns the content type for name, or the empty string when
// strict mode has no type for its extension.
func (h *FileHandler) MimeType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if mime, ok := h.settings.Types[ext]; ok {
		return mime
	}
	if h.settings.Strict {
		return ""
	}
	return ContentTypeOctetStream
}

func (h *FileHandler) setResponseFile(out *Output, name string) error {
	mime := h.MimeType(name)
	file := filepath.Join(h.settings.Directory, filepath.FromSlash(path.Clean("/"+name)))

	if mime == "" || !regularFile(file) {
		return h.setResponseError(out, http.StatusNotFound, fmt.Sprintf("File '%s' could not be found", name))
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := SetStatus(out, http.StatusOK); err != nil {
		return err
	}
	SetContent(out, data, mime)
	return nil
}

func (h *FileHandler) setResponseError(out *Output, status int, information string) error {
	if err := SetStatus(out, status); err != nil {
		return err
	}

	page := strings.NewReplacer(
		"!STATUS!", strconv.Itoa(status),
		"!MESSAGE!", html.EscapeString(out.Message),
		"!INFORMATION!", html.EscapeString(information),
	).Replace(errorTemplate)

	mime := h.settings.Types["html"]
	if mime == "" {
		mime = ContentTypeHTML
	}
	SetContent(out, []byte(page), mime)
	return nil
}

func regularFile(name string) bool {
	info, err := os.Lstat(name)
	return err == nil && info.Mode().IsRegular()
}

// exceptionOf returns the exception variable of request as text.
func exceptionOf(request *Request) string {
	switch v := request.Environment[VariableException].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
