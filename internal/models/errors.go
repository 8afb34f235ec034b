package models

import "errors"

// Классы ошибок загрузки. Конкретные ошибки оборачивают их через %w,
// поэтому класс проверяется errors.Is на любом уровне.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrStorage          = errors.New("storage error")
	ErrIncompleteUpload = errors.New("upload incomplete")
	ErrNotFound         = errors.New("file not found")
)
