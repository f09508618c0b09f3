package domain

import (
	"github.com/google/uuid"
)

// AssetKind определяет закрытое множество типов визуальных ассетов.
// Любая обработка ассета обязана делать исчерпывающий switch по этому типу.
type AssetKind string

const (
	AssetKindCharacter AssetKind = "character"
	AssetKindScene     AssetKind = "scene"
	AssetKindProp      AssetKind = "prop"
)

// Valid проверяет, что тип ассета принадлежит закрытому множеству.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetKindCharacter, AssetKindScene, AssetKindProp:
		return true
	}
	return false
}

// AssetCreationMode определяет способ создания ассета.
type AssetCreationMode string

const (
	AssetCreatedByModel  AssetCreationMode = "model_generation"
	AssetCreatedByUpload AssetCreationMode = "upload"
)

// Character представляет персонажа из пула ассетов проекта.
type Character struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Gender       string            `json:"gender"`
	AgeGroup     string            `json:"age_group"`
	Model        string            `json:"model"`
	Prompt       string            `json:"prompt"`
	RefImage     string            `json:"ref_image,omitempty"`
	PreviewImage string            `json:"preview_image,omitempty"`
	CreationMode AssetCreationMode `json:"creation_mode"`
}

// Scene представляет сцену (локацию) из пула ассетов проекта.
type Scene struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Model        string            `json:"model,omitempty"`
	Prompt       string            `json:"prompt,omitempty"`
	Image        string            `json:"image"`
	CreationMode AssetCreationMode `json:"creation_mode"`
}

// Prop представляет предмет (реквизит) из пула ассетов проекта.
type Prop struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Model        string            `json:"model"`
	Prompt       string            `json:"prompt"`
	RefImage     string            `json:"ref_image,omitempty"`
	PreviewImage string            `json:"preview_image,omitempty"`
	CreationMode AssetCreationMode `json:"creation_mode"`
}

// AssetSelection содержит копии ассетов, выбранных пользователем в мастере.
// Выбор не изымает ассет из пула проекта: один ассет может участвовать
// в любом количестве раскадровок.
type AssetSelection struct {
	Characters []Character `json:"characters"`
	Scenes     []Scene     `json:"scenes"`
	Props      []Prop      `json:"props"`
}

// NewAssetSelection создает пустой выбор ассетов.
func NewAssetSelection() AssetSelection {
	return AssetSelection{
		Characters: []Character{},
		Scenes:     []Scene{},
		Props:      []Prop{},
	}
}

// Contains проверяет, присутствует ли ассет указанного типа в выборе.
func (s *AssetSelection) Contains(kind AssetKind, id uuid.UUID) bool {
	switch kind {
	case AssetKindCharacter:
		for _, c := range s.Characters {
			if c.ID == id {
				return true
			}
		}
	case AssetKindScene:
		for _, sc := range s.Scenes {
			if sc.ID == id {
				return true
			}
		}
	case AssetKindProp:
		for _, p := range s.Props {
			if p.ID == id {
				return true
			}
		}
	}
	return false
}

// ToggleCharacter добавляет персонажа в выбор или убирает его, если он уже выбран.
// Возвращает true, если персонаж выбран после операции.
func (s *AssetSelection) ToggleCharacter(c Character) bool {
	for i := range s.Characters {
		if s.Characters[i].ID == c.ID {
			s.Characters = append(s.Characters[:i], s.Characters[i+1:]...)
			return false
		}
	}
	s.Characters = append(s.Characters, c)
	return true
}

// ToggleScene добавляет сцену в выбор или убирает её, если она уже выбрана.
func (s *AssetSelection) ToggleScene(sc Scene) bool {
	for i := range s.Scenes {
		if s.Scenes[i].ID == sc.ID {
			s.Scenes = append(s.Scenes[:i], s.Scenes[i+1:]...)
			return false
		}
	}
	s.Scenes = append(s.Scenes, sc)
	return true
}

// ToggleProp добавляет предмет в выбор или убирает его, если он уже выбран.
func (s *AssetSelection) ToggleProp(p Prop) bool {
	for i := range s.Props {
		if s.Props[i].ID == p.ID {
			s.Props = append(s.Props[:i], s.Props[i+1:]...)
			return false
		}
	}
	s.Props = append(s.Props, p)
	return true
}

// AssetBindings описывает привязку ассетов к одному кадру раскадровки
// или к одному fusion-изображению. Персонажи и предметы — множества,
// сцена — эксклюзивный выбор.
type AssetBindings struct {
	CharacterIDs []uuid.UUID `json:"character_ids"`
	SceneID      *uuid.UUID  `json:"scene_id"`
	PropIDs      []uuid.UUID `json:"prop_ids"`
}

// NewAssetBindings создает пустую привязку. Новые кадры всегда начинают
// без привязанных ассетов: привязка — отдельное явное действие пользователя.
func NewAssetBindings() AssetBindings {
	return AssetBindings{
		CharacterIDs: []uuid.UUID{},
		SceneID:      nil,
		PropIDs:      []uuid.UUID{},
	}
}

// Clone возвращает независимую копию привязки.
func (b AssetBindings) Clone() AssetBindings {
	out := AssetBindings{
		CharacterIDs: make([]uuid.UUID, len(b.CharacterIDs)),
		PropIDs:      make([]uuid.UUID, len(b.PropIDs)),
	}
	copy(out.CharacterIDs, b.CharacterIDs)
	copy(out.PropIDs, b.PropIDs)
	if b.SceneID != nil {
		sceneID := *b.SceneID
		out.SceneID = &sceneID
	}
	return out
}

// Toggle переключает членство ассета в привязке.
// Для сцены повторная установка того же ID очищает выбор,
// установка другого ID заменяет его.
func (b *AssetBindings) Toggle(kind AssetKind, id uuid.UUID) {
	switch kind {
	case AssetKindCharacter:
		b.CharacterIDs = toggleID(b.CharacterIDs, id)
	case AssetKindScene:
		if b.SceneID != nil && *b.SceneID == id {
			b.SceneID = nil
		} else {
			sceneID := id
			b.SceneID = &sceneID
		}
	case AssetKindProp:
		b.PropIDs = toggleID(b.PropIDs, id)
	}
}

func toggleID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i := range ids {
		if ids[i] == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return append(ids, id)
}
