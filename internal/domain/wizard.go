package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WizardStep представляет шаг мастера "сценарий в видео".
// Переходы строго линейные: вперед только на соседний шаг,
// назад — на любой предыдущий без потери данных.
type WizardStep int

const (
	StepScript     WizardStep = 1
	StepAssets     WizardStep = 2
	StepStoryboard WizardStep = 3
	StepFusion     WizardStep = 4
	StepVideoEdit  WizardStep = 5
)

// String возвращает человекочитаемое имя шага.
func (s WizardStep) String() string {
	switch s {
	case StepScript:
		return "script"
	case StepAssets:
		return "assets"
	case StepStoryboard:
		return "storyboard"
	case StepFusion:
		return "fusion"
	case StepVideoEdit:
		return "video_edit"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Stage определяет этап генерации. Для каждого этапа в рамках одной
// сессии допускается не более одной выполняющейся задачи генерации.
type Stage string

const (
	StageStoryboard Stage = "storyboard"
	StageFusion     Stage = "fusion"
	StageVideo      Stage = "video"
)

// AiModel определяет модель генерации видео/изображений.
type AiModel string

const (
	ModelWan25   AiModel = "wan-2.5"
	ModelKling   AiModel = "kling"
	ModelRunway  AiModel = "runway-gen3"
	ModelSora    AiModel = "sora"
	ModelMinimax AiModel = "minimax"
)

// AspectRatio определяет соотношение сторон кадра.
// 2.35:1 допустимо только для fusion-изображений.
type AspectRatio string

const (
	Aspect169 AspectRatio = "16:9"
	Aspect916 AspectRatio = "9:16"
	Aspect11  AspectRatio = "1:1"
	Aspect235 AspectRatio = "2.35:1"
)

// Resolution определяет разрешение генерируемого видео.
type Resolution string

const (
	Resolution1080p Resolution = "1080p"
	Resolution720p  Resolution = "720p"
)

// Duration определяет длительность генерируемого клипа.
type Duration string

const (
	Duration5s  Duration = "5s"
	Duration10s Duration = "10s"
)

// Границы количества кадров в сценарии.
const (
	MinShots = 1
	MaxShots = 80
)

// ScriptData содержит сценарий, введенный на первом шаге мастера.
// После генерации раскадровки сценарий неизменяем: правка возможна
// только через полный перезапуск мастера.
type ScriptData struct {
	Title    string `json:"title"`
	MaxShots int    `json:"max_shots"`
	Content  string `json:"content"`
}

// Validate проверяет границы полей сценария.
func (s ScriptData) Validate() error {
	if s.MaxShots < MinShots || s.MaxShots > MaxShots {
		return fmt.Errorf("%w: max_shots must be between %d and %d", ErrInvalidInput, MinShots, MaxShots)
	}
	return nil
}

// VideoSettings содержит параметры генерации видео. Используется и как
// глобальные настройки по умолчанию, и как снимок параметров на момент запуска.
type VideoSettings struct {
	Model      AiModel    `json:"model"`
	Resolution Resolution `json:"resolution"`
	Duration   Duration   `json:"duration"`
	Count      int        `json:"count"`
}

// VideoSettingsPatch — частичное обновление глобальных настроек видео.
// Непустое поле перезаписывается на КАЖДОМ уже существующем fusion-изображении,
// а не только применяется к новым (широковещательная запись, см. ApplyVideoDefaults).
type VideoSettingsPatch struct {
	Model      *AiModel    `json:"model,omitempty"`
	Resolution *Resolution `json:"resolution,omitempty"`
	Duration   *Duration   `json:"duration,omitempty"`
	Count      *int        `json:"count,omitempty"`
}

// RegenerateSettings — параметры повторной генерации видео для одного
// fusion-изображения, включая переопределение промпта.
type RegenerateSettings struct {
	Model      AiModel    `json:"model"`
	Resolution Resolution `json:"resolution"`
	Duration   Duration   `json:"duration"`
	Count      int        `json:"count"`
	Prompt     string     `json:"prompt"`
}

// Storyboard представляет один кадр раскадровки.
// Инвариант: поле Sequence всегда образует непрерывную нумерацию 1..N,
// совпадающую с позицией в списке; любая вставка или удаление перенумеровывает
// весь список.
type Storyboard struct {
	ID            uuid.UUID     `json:"id"`
	Sequence      int           `json:"sequence"`
	ScriptContent string        `json:"script_content"`
	Prompt        string        `json:"prompt"`
	Assets        AssetBindings `json:"assets"`
	Model         AiModel       `json:"model"`
	AspectRatio   AspectRatio   `json:"aspect_ratio"`
	Count         int           `json:"count"`
}

// FusionStatus — статус fusion-изображения относительно генерации видео.
type FusionStatus string

const (
	FusionStatusReady      FusionStatus = "ready"
	FusionStatusGenerating FusionStatus = "generating"
	FusionStatusDone       FusionStatus = "done"
)

// FusionImage представляет одно сгенерированное изображение на кадр раскадровки
// вместе с параметрами генерации видео. После создания изображение независимо
// от дальнейших правок раскадровки: связь StoryboardID фиксируется на момент
// генерации и не поддерживается «вживую» — это намеренная точка разрыва конвейера.
type FusionImage struct {
	ID               uuid.UUID     `json:"id"`
	StoryboardID     uuid.UUID     `json:"storyboard_id"`
	ImageURL         string        `json:"image_url"`
	Prompt           string        `json:"prompt"`
	VideoModel       AiModel       `json:"video_model"`
	Resolution       Resolution    `json:"resolution"`
	Duration         Duration      `json:"duration"`
	Count            int           `json:"count"`
	Status           FusionStatus  `json:"status"`
	AspectRatio      AspectRatio   `json:"aspect_ratio"`
	Assets           AssetBindings `json:"assets"`
	RefPoseImage     string        `json:"ref_pose_image,omitempty"`
	ConfirmedVideoID *uuid.UUID    `json:"confirmed_video_id,omitempty"`
}

// Dubbing — озвучка кандидата видео.
type Dubbing struct {
	AudioURL string `json:"audio_url"`
	Voice    string `json:"voice"`
}

// FinalVideo представляет одного кандидата видео, сгенерированного из
// fusion-изображения. Кандидаты только накапливаются: повторная генерация
// добавляет новых, прежние остаются доступными для выбора.
type FinalVideo struct {
	ID            uuid.UUID `json:"id"`
	FusionImageID uuid.UUID `json:"fusion_image_id"`
	VideoURL      string    `json:"video_url"`
	Prompt        string    `json:"prompt"`
	Dubbing       *Dubbing  `json:"dubbing,omitempty"`
}

// WizardState — агрегат всего состояния мастера. Единственный источник истины
// для текущей конвертации; все операции порождают новое состояние из старого
// и действия пользователя либо результата генерации.
type WizardState struct {
	SessionID      uuid.UUID      `json:"session_id"`
	ProjectID      uuid.UUID      `json:"project_id"`
	Step           WizardStep     `json:"step"`
	Script         ScriptData     `json:"script"`
	SelectedAssets AssetSelection `json:"selected_assets"`
	Storyboards    []Storyboard   `json:"storyboards"`
	FusionImages   []FusionImage  `json:"fusion_images"`
	FinalVideos    []FinalVideo   `json:"final_videos"`
	GlobalVideo    VideoSettings  `json:"global_video_settings"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// GenerationToken идентифицирует поколение сессии: результат генерации,
	// пришедший с другим токеном, отбрасывается как устаревший.
	GenerationToken uuid.UUID `json:"-"`
	// InFlight хранит ID задачи генерации, выполняющейся для этапа.
	InFlight map[Stage]uuid.UUID `json:"-"`
}

// NewWizardState создает свежее состояние мастера для проекта.
func NewWizardState(projectID uuid.UUID, defaults VideoSettings) *WizardState {
	now := time.Now().UTC()
	return &WizardState{
		SessionID:       uuid.New(),
		ProjectID:       projectID,
		Step:            StepScript,
		Script:          ScriptData{MaxShots: 10},
		SelectedAssets:  NewAssetSelection(),
		Storyboards:     []Storyboard{},
		FusionImages:    []FusionImage{},
		FinalVideos:     []FinalVideo{},
		GlobalVideo:     defaults,
		CreatedAt:       now,
		UpdatedAt:       now,
		GenerationToken: uuid.New(),
		InFlight:        make(map[Stage]uuid.UUID),
	}
}

// SetStoryboards целиком заменяет список раскадровки (результат батч-генерации)
// и восстанавливает непрерывную нумерацию.
func (w *WizardState) SetStoryboards(shots []Storyboard) {
	w.Storyboards = shots
	w.RenumberStoryboards()
}

// RenumberStoryboards восстанавливает инвариант Sequence == позиция + 1.
func (w *WizardState) RenumberStoryboards() {
	for i := range w.Storyboards {
		w.Storyboards[i].Sequence = i + 1
	}
}

// StoryboardByID возвращает кадр по ID или nil.
func (w *WizardState) StoryboardByID(id uuid.UUID) *Storyboard {
	for i := range w.Storyboards {
		if w.Storyboards[i].ID == id {
			return &w.Storyboards[i]
		}
	}
	return nil
}

// InsertShotAfter вставляет кадр сразу после позиции index (0-based)
// и перенумеровывает список. index == -1 вставляет в начало,
// index >= len-1 — в конец.
func (w *WizardState) InsertShotAfter(index int, shot Storyboard) {
	pos := index + 1
	if pos < 0 {
		pos = 0
	}
	if pos > len(w.Storyboards) {
		pos = len(w.Storyboards)
	}
	w.Storyboards = append(w.Storyboards, Storyboard{})
	copy(w.Storyboards[pos+1:], w.Storyboards[pos:])
	w.Storyboards[pos] = shot
	w.RenumberStoryboards()
}

// DeleteShot удаляет кадр по ID и перенумеровывает оставшиеся.
// Минимального количества кадров нет: список может опустеть.
func (w *WizardState) DeleteShot(id uuid.UUID) bool {
	for i := range w.Storyboards {
		if w.Storyboards[i].ID == id {
			w.Storyboards = append(w.Storyboards[:i], w.Storyboards[i+1:]...)
			w.RenumberStoryboards()
			return true
		}
	}
	return false
}

// HasDownstreamFor сообщает, существуют ли fusion-изображения или кандидаты
// видео, производные от указанного кадра. Правка промпта кадра не трогает их:
// распространение изменений строго одностороннее, вперед по конвейеру.
func (w *WizardState) HasDownstreamFor(storyboardID uuid.UUID) bool {
	for i := range w.FusionImages {
		if w.FusionImages[i].StoryboardID == storyboardID {
			return true
		}
	}
	return false
}

// FusionImageByID возвращает fusion-изображение по ID или nil.
func (w *WizardState) FusionImageByID(id uuid.UUID) *FusionImage {
	for i := range w.FusionImages {
		if w.FusionImages[i].ID == id {
			return &w.FusionImages[i]
		}
	}
	return nil
}

// DeleteFusionImage удаляет fusion-изображение. Каскадного удаления нет:
// исходный кадр раскадровки и уже сгенерированные кандидаты остаются.
func (w *WizardState) DeleteFusionImage(id uuid.UUID) bool {
	for i := range w.FusionImages {
		if w.FusionImages[i].ID == id {
			w.FusionImages = append(w.FusionImages[:i], w.FusionImages[i+1:]...)
			return true
		}
	}
	return false
}

// FinalVideoByID возвращает кандидата по ID или nil.
func (w *WizardState) FinalVideoByID(id uuid.UUID) *FinalVideo {
	for i := range w.FinalVideos {
		if w.FinalVideos[i].ID == id {
			return &w.FinalVideos[i]
		}
	}
	return nil
}

// CandidatesFor возвращает кандидатов указанного fusion-изображения
// в порядке генерации.
func (w *WizardState) CandidatesFor(fusionImageID uuid.UUID) []FinalVideo {
	var out []FinalVideo
	for _, v := range w.FinalVideos {
		if v.FusionImageID == fusionImageID {
			out = append(out, v)
		}
	}
	return out
}

// ApplyVideoDefaults применяет частичное обновление глобальных настроек видео.
// Каждое заданное поле перезаписывается на всех существующих fusion-изображениях
// и сохраняется как значение по умолчанию для создаваемых позже.
func (w *WizardState) ApplyVideoDefaults(patch VideoSettingsPatch) {
	if patch.Model != nil {
		w.GlobalVideo.Model = *patch.Model
		for i := range w.FusionImages {
			w.FusionImages[i].VideoModel = *patch.Model
		}
	}
	if patch.Resolution != nil {
		w.GlobalVideo.Resolution = *patch.Resolution
		for i := range w.FusionImages {
			w.FusionImages[i].Resolution = *patch.Resolution
		}
	}
	if patch.Duration != nil {
		w.GlobalVideo.Duration = *patch.Duration
		for i := range w.FusionImages {
			w.FusionImages[i].Duration = *patch.Duration
		}
	}
	if patch.Count != nil {
		w.GlobalVideo.Count = *patch.Count
		for i := range w.FusionImages {
			w.FusionImages[i].Count = *patch.Count
		}
	}
}

// ResolveConfirmedVideos сворачивает состояние в упорядоченный список
// подтвержденных видео: по одному на fusion-изображение, в порядке следования.
// Если ConfirmedVideoID не установлен, берется первый сгенерированный кандидат;
// изображение без кандидатов не дает записи в результат. Падение на первого
// кандидата — осознанное решение: пользователь, не выбравший фаворита явно,
// все равно получает результат.
func (w *WizardState) ResolveConfirmedVideos() []FinalVideo {
	out := make([]FinalVideo, 0, len(w.FusionImages))
	for _, img := range w.FusionImages {
		if img.ConfirmedVideoID != nil {
			if v := w.FinalVideoByID(*img.ConfirmedVideoID); v != nil {
				out = append(out, *v)
				continue
			}
		}
		candidates := w.CandidatesFor(img.ID)
		if len(candidates) > 0 {
			out = append(out, candidates[0])
		}
	}
	return out
}

// Touch обновляет отметку последнего изменения.
func (w *WizardState) Touch() {
	w.UpdatedAt = time.Now().UTC()
}

// Clone возвращает глубокую копию состояния, безопасную для чтения
// вне блокировки хранилища сессий.
func (w *WizardState) Clone() *WizardState {
	out := *w

	out.SelectedAssets = AssetSelection{
		Characters: append([]Character{}, w.SelectedAssets.Characters...),
		Scenes:     append([]Scene{}, w.SelectedAssets.Scenes...),
		Props:      append([]Prop{}, w.SelectedAssets.Props...),
	}

	out.Storyboards = make([]Storyboard, len(w.Storyboards))
	for i, sb := range w.Storyboards {
		sb.Assets = sb.Assets.Clone()
		out.Storyboards[i] = sb
	}

	out.FusionImages = make([]FusionImage, len(w.FusionImages))
	for i, img := range w.FusionImages {
		img.Assets = img.Assets.Clone()
		if img.ConfirmedVideoID != nil {
			id := *img.ConfirmedVideoID
			img.ConfirmedVideoID = &id
		}
		out.FusionImages[i] = img
	}

	out.FinalVideos = make([]FinalVideo, len(w.FinalVideos))
	for i, v := range w.FinalVideos {
		if v.Dubbing != nil {
			d := *v.Dubbing
			v.Dubbing = &d
		}
		out.FinalVideos[i] = v
	}

	out.InFlight = make(map[Stage]uuid.UUID, len(w.InFlight))
	for k, v := range w.InFlight {
		out.InFlight[k] = v
	}

	return &out
}
