package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project представляет проект-владелец: пул переиспользуемых ассетов
// и накопленные сниппеты. Мастер читает пул и в конце добавляет сниппеты;
// больше он проект не трогает.
type Project struct {
	ID         uuid.UUID   `json:"id"`
	Title      string      `json:"title"`
	Characters []Character `json:"characters"`
	Scenes     []Scene     `json:"scenes"`
	Props      []Prop      `json:"props"`
	Snippets   []Snippet   `json:"snippets"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Snippet — единица результата, в которую проект оборачивает каждое
// подтвержденное видео после завершения мастера.
type Snippet struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	VideoURL  string    `json:"video_url"`
	Prompt    string    `json:"prompt"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

// Режим создания сниппета, порожденного мастером.
const SnippetModeScriptToVideo = "script_to_video"
