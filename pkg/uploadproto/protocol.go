// Package uploadproto описывает HTTP-протокол загрузки файла по частям.
package uploadproto

// Заголовки запроса POST /upload. Каждый запрос несёт один чанк.
const (
	HeaderFileName    = "X-File-Name"
	HeaderFileSize    = "X-File-Size"
	HeaderChunkIndex  = "X-Chunk-Index"
	HeaderTotalChunks = "X-Total-Chunks"
)

// Заголовки ответа.
const (
	HeaderFinalized = "X-Upload-Finalized"
	HeaderSize      = "X-Upload-Size"
)

// Пути и поля формы.
const (
	UploadPath      = "/upload"
	UploadURLFormat = "%s" + UploadPath
	FilesURLFormat  = "%s/files/%s"

	// FormFieldChunk: предпочтительное имя поля в multipart/form-data.
	// Если его нет, чанком считается первое файловое поле.
	FormFieldChunk = "chunk"
)
