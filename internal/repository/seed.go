package repository

import (
	"time"

	"github.com/google/uuid"

	"sparkreel-server/internal/domain"
)

// SeedDemoProject создает демонстрационный проект с небольшим пулом ассетов.
// Используется при запуске без внешнего источника проектов.
func SeedDemoProject() *domain.Project {
	now := time.Now().UTC()
	return &domain.Project{
		ID:    uuid.New(),
		Title: "Ascension of the Sword Saint",
		Characters: []domain.Character{
			{
				ID:           uuid.New(),
				Name:         "Li Xuan",
				Gender:       "Male",
				AgeGroup:     "Teen",
				Model:        "anime-v3",
				Prompt:       "young swordsman, black robe, silver hair, determined eyes, anime style",
				PreviewImage: "https://cdn.sparkreel.dev/assets/characters/li-xuan.png",
				CreationMode: domain.AssetCreatedByModel,
			},
			{
				ID:           uuid.New(),
				Name:         "Elder Mo",
				Gender:       "Male",
				AgeGroup:     "Elder",
				Model:        "anime-v3",
				Prompt:       "ancient sect elder, long white beard, grey ceremonial robes, stern expression",
				PreviewImage: "https://cdn.sparkreel.dev/assets/characters/elder-mo.png",
				CreationMode: domain.AssetCreatedByModel,
			},
		},
		Scenes: []domain.Scene{
			{
				ID:           uuid.New(),
				Name:         "Sect Training Grounds",
				Model:        "anime-v3",
				Prompt:       "misty mountain training grounds, stone pillars, dawn light",
				Image:        "https://cdn.sparkreel.dev/assets/scenes/training-grounds.png",
				CreationMode: domain.AssetCreatedByModel,
			},
			{
				ID:           uuid.New(),
				Name:         "Forbidden Cavern",
				Image:        "https://cdn.sparkreel.dev/assets/scenes/forbidden-cavern.png",
				CreationMode: domain.AssetCreatedByUpload,
			},
		},
		Props: []domain.Prop{
			{
				ID:           uuid.New(),
				Name:         "Azure Frost Sword",
				Model:        "anime-v3",
				Prompt:       "legendary jian sword, azure blade, frost aura",
				PreviewImage: "https://cdn.sparkreel.dev/assets/props/azure-frost-sword.png",
				CreationMode: domain.AssetCreatedByModel,
			},
		},
		Snippets:  []domain.Snippet{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
