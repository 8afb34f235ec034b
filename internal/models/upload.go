package models

// ChunkResult возвращается после обработки чанка.
type ChunkResult struct {
	Key   string
	Index int
	Bytes int64 // байт в сохранённой части

	// Заполняются, только если этот чанк завершил загрузку.
	Finalized    bool
	ArtifactSize int64
	Parts        int
}

// ChunkPlan описывает, на сколько частей нужно разбить файл и какого они размера.
type ChunkPlan struct {
	Total int
	Size  int64
}

// ChunkLen возвращает длину чанка idx для файла размером fileSize.
func (p ChunkPlan) ChunkLen(idx int, fileSize int64) int64 {
	off := int64(idx) * p.Size
	if off >= fileSize {
		return 0
	}
	return min(p.Size, fileSize-off)
}
