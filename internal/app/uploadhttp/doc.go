// Package uploadhttp реализует HTTP API приёма файлов по частям поверх локального диска.
// Основные эндпоинты:
//   - POST /upload: принимает один чанк (сырое тело или multipart/form-data) с заголовками
//     X-File-Name, X-Chunk-Index, X-Total-Chunks и необязательным X-File-Size. Чанк,
//     завершающий загрузку, собирает итоговый файл.
//   - GET /files/{name}, HEAD /files/{name}: отдают собранный файл.
//   - GET /health: объём каталога загрузок и число незавершённых загрузок.
//   - GET /admin/uploads: незавершённые загрузки по частям на диске.
//   - POST /admin/gc: ручной запуск сборщика устаревших частей.
//   - GET /admin/config: действующая конфигурация.
package uploadhttp
