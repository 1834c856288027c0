package types

import (
	"errors"
	"net/http"
)

// Error taxonomy. Every layer wraps these with fmt.Errorf("...: %w") and
// callers match them with errors.Is.
var (
	// ErrWorkspaceNotFound means the root path does not exist or is not a directory.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrNothingToClassify means classify was requested with nothing pending.
	ErrNothingToClassify = errors.New("nothing to classify")

	// ErrEmptyTag means the tag was empty after trimming.
	ErrEmptyTag = errors.New("tag is empty")

	// ErrInvalidTag means the tag would not name a single subdirectory of the root.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrEmptyQueue means a queue operation needed a front element.
	ErrEmptyQueue = errors.New("queue is empty")

	// ErrSourceNotFound means the file to move is gone.
	ErrSourceNotFound = errors.New("source not found")

	// ErrDestinationConflict means a file already exists at the target path.
	ErrDestinationConflict = errors.New("destination already exists")

	// ErrDirectoryCreateFailed means the destination directory could not be created.
	ErrDirectoryCreateFailed = errors.New("cannot create destination directory")
)

// StatusCode maps an error from the taxonomy to an HTTP status code.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrWorkspaceNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrEmptyTag), errors.Is(err, ErrInvalidTag):
		return http.StatusBadRequest
	case errors.Is(err, ErrNothingToClassify), errors.Is(err, ErrEmptyQueue):
		return http.StatusConflict
	case errors.Is(err, ErrSourceNotFound):
		return http.StatusGone
	case errors.Is(err, ErrDestinationConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns a short message suitable for showing to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWorkspaceNotFound):
		return "That folder does not exist. Check the path and try again."
	case errors.Is(err, ErrEmptyTag):
		return "Enter a tag before classifying."
	case errors.Is(err, ErrInvalidTag):
		return "Tags cannot contain path separators or be '.' or '..'."
	case errors.Is(err, ErrNothingToClassify), errors.Is(err, ErrEmptyQueue):
		return "Nothing left to classify."
	case errors.Is(err, ErrSourceNotFound):
		return "The image was moved or deleted outside triage. Try rescanning."
	case errors.Is(err, ErrDestinationConflict):
		return "A file with that name already exists in the destination."
	case errors.Is(err, ErrDirectoryCreateFailed):
		return "The tag folder could not be created."
	default:
		return "Something went wrong: " + err.Error()
	}
}
