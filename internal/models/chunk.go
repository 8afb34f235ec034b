package models

// ChunkDescriptor описывает один чанк так, как его заявил клиент в заголовках запроса.
type ChunkDescriptor struct {
	Key      string // имя файла, под которым собирается загрузка
	Index    int    // порядковый номер чанка, с нуля
	Total    int    // заявленное количество чанков
	FileSize int64  // заявленный размер файла, -1 если не передан
}

// IsLast сообщает, что чанк последний по заявленному количеству.
func (d ChunkDescriptor) IsLast() bool {
	return d.Total > 0 && d.Index == d.Total-1
}
