package backup

import "errors"

var (
	// ErrLoginFailed indicates the file-port login exchange was
	// rejected, or the reply carried no recognizable return code.
	ErrLoginFailed = errors.New("backup: file port login failed")

	// ErrNoPayload indicates the GetFile reply contained no base64
	// payload in either known encoding.
	ErrNoPayload = errors.New("backup: no file payload in controller response")

	// ErrCacheMiss indicates no cached project file exists for the
	// host.
	ErrCacheMiss = errors.New("backup: no cached project file for host")
)
