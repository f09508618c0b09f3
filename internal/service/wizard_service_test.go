package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkreel-server/internal/domain"
	"sparkreel-server/internal/generator"
	"sparkreel-server/internal/repository"
	"sparkreel-server/internal/service"
	"sparkreel-server/pkg/taskmanager"
)

const testScript = "Dawn over the sect.\nLi Xuan trains alone.\nThe elder watches."

type testEnv struct {
	svc     *service.WizardService
	project *domain.Project
	tasks   *taskmanager.Manager
}

func newTestEnv(t *testing.T, gens generator.Set) *testEnv {
	t.Helper()
	project := repository.SeedDemoProject()
	tasks := taskmanager.New(10)
	svc := service.NewWizardService(
		repository.NewMemorySessionRepository(),
		repository.NewMemoryProjectRepository(project),
		gens,
		tasks,
		domain.VideoSettings{
			Model:      domain.ModelWan25,
			Resolution: domain.Resolution1080p,
			Duration:   domain.Duration5s,
			Count:      1,
		},
	)
	return &testEnv{svc: svc, project: project, tasks: tasks}
}

func newStubEnv(t *testing.T) *testEnv {
	return newTestEnv(t, generator.NewStubSet(domain.ModelWan25, 0))
}

// waitState дожидается, пока состояние сессии не удовлетворит условию.
func (e *testEnv) waitState(t *testing.T, sessionID uuid.UUID, cond func(*domain.WizardState) bool) *domain.WizardState {
	t.Helper()
	var state *domain.WizardState
	require.Eventually(t, func() bool {
		got, err := e.svc.GetState(context.Background(), sessionID)
		if err != nil || !cond(got) {
			return false
		}
		state = got
		return true
	}, 2*time.Second, 10*time.Millisecond)
	return state
}

// openAt открывает сессию и проводит её до указанного шага,
// дожидаясь завершения генерации каждого этапа.
func (e *testEnv) openAt(t *testing.T, step domain.WizardStep) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	st, err := e.svc.StartWizard(ctx, e.project.ID)
	require.NoError(t, err)
	id := st.SessionID
	if step == domain.StepScript {
		return id
	}

	require.NoError(t, e.svc.SetScript(ctx, id, domain.ScriptData{
		Title:    "Sword Saint",
		MaxShots: 10,
		Content:  testScript,
	}))
	_, _, err = e.svc.Advance(ctx, id)
	require.NoError(t, err)
	if step == domain.StepAssets {
		return id
	}

	_, _, err = e.svc.Advance(ctx, id)
	require.NoError(t, err)
	e.waitState(t, id, func(st *domain.WizardState) bool { return len(st.Storyboards) == 3 })
	if step == domain.StepStoryboard {
		return id
	}

	_, _, err = e.svc.Advance(ctx, id)
	require.NoError(t, err)
	e.waitState(t, id, func(st *domain.WizardState) bool { return len(st.FusionImages) == 3 })
	if step == domain.StepFusion {
		return id
	}

	_, _, err = e.svc.Advance(ctx, id)
	require.NoError(t, err)
	e.waitState(t, id, func(st *domain.WizardState) bool { return len(st.FinalVideos) == 3 })
	return id
}

// blockingStoryboardGen блокирует генерацию до закрытия release.
type blockingStoryboardGen struct {
	started chan struct{}
	release chan struct{}
	shots   []domain.Storyboard
}

func newBlockingStoryboardGen(shots []domain.Storyboard) *blockingStoryboardGen {
	return &blockingStoryboardGen{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		shots:   shots,
	}
}

func (g *blockingStoryboardGen) Generate(ctx context.Context, _ domain.ScriptData, _ domain.AssetSelection) ([]domain.Storyboard, error) {
	select {
	case g.started <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
		return g.shots, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// failingFusionGen всегда завершается ошибкой.
type failingFusionGen struct{}

func (failingFusionGen) Generate(context.Context, []domain.Storyboard, domain.VideoSettings) ([]domain.FusionImage, error) {
	return nil, errors.New("render backend unavailable")
}

func TestStartWizard(t *testing.T) {
	env := newStubEnv(t)
	ctx := context.Background()

	t.Run("Unknown project", func(t *testing.T) {
		_, err := env.svc.StartWizard(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("Fresh session starts at script step", func(t *testing.T) {
		st, err := env.svc.StartWizard(ctx, env.project.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StepScript, st.Step)
		assert.Equal(t, 10, st.Script.MaxShots)
		assert.Equal(t, domain.ModelWan25, st.GlobalVideo.Model)
		assert.Empty(t, st.Storyboards)
		assert.Empty(t, st.FusionImages)
		assert.Empty(t, st.FinalVideos)
	})
}

func TestSetScript(t *testing.T) {
	env := newStubEnv(t)
	ctx := context.Background()

	t.Run("Rejects max shots out of range", func(t *testing.T) {
		id := env.openAt(t, domain.StepScript)
		err := env.svc.SetScript(ctx, id, domain.ScriptData{MaxShots: 0, Content: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		err = env.svc.SetScript(ctx, id, domain.ScriptData{MaxShots: domain.MaxShots + 1, Content: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("Script is frozen after leaving the first step", func(t *testing.T) {
		id := env.openAt(t, domain.StepAssets)
		err := env.svc.SetScript(ctx, id, domain.ScriptData{MaxShots: 5, Content: "rewrite"})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestAdvanceValidation(t *testing.T) {
	env := newStubEnv(t)
	ctx := context.Background()

	t.Run("Empty script blocks the first advance", func(t *testing.T) {
		id := env.openAt(t, domain.StepScript)
		require.NoError(t, env.svc.SetScript(ctx, id, domain.ScriptData{MaxShots: 10, Content: "   \n  "}))
		_, _, err := env.svc.Advance(ctx, id)
		assert.ErrorIs(t, err, domain.ErrMissingPrecondition)
	})

	t.Run("No advance past the last step", func(t *testing.T) {
		id := env.openAt(t, domain.StepVideoEdit)
		_, _, err := env.svc.Advance(ctx, id)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestRetreat(t *testing.T) {
	env := newStubEnv(t)
	ctx := context.Background()

	t.Run("Backward keeps generated data", func(t *testing.T) {
		id := env.openAt(t, domain.StepStoryboard)
		st, err := env.svc.Retreat(ctx, id, domain.StepScript)
		require.NoError(t, err)
		assert.Equal(t, domain.StepScript, st.Step)
		assert.Len(t, st.Storyboards, 3)
	})

	t.Run("Forward and same-step targets rejected", func(t *testing.T) {
		id := env.openAt(t, domain.StepAssets)
		_, err := env.svc.Retreat(ctx, id, domain.StepAssets)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = env.svc.Retreat(ctx, id, domain.StepFusion)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = env.svc.Retreat(ctx, id, domain.WizardStep(0))
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestToggleAssetSelection(t *testing.T) {
	env := newStubEnv(t)
	ctx := context.Background()
	id := env.openAt(t, domain.StepAssets)
	char := env.project.Characters[0]

	t.Run("Toggle adds then removes", func(t *testing.T) {
		selected, err := env.svc.ToggleAssetSelection(ctx, id, domain.AssetKindCharacter, char.ID)
		require.NoError(t, err)
		assert.True(t, selected)

		selected, err = env.svc.ToggleAssetSelection(ctx, id, domain.AssetKindCharacter, char.ID)
		require.NoError(t, err)
		assert.False(t, selected)
	})

	t.Run("Asset outside the pool", func(t *testing.T) {
		_, err := env.svc.ToggleAssetSelection(ctx, id, domain.AssetKindCharacter, uuid.New())
		assert.ErrorIs(t, err, domain.ErrInvalidReference)
	})

	t.Run("Unknown kind", func(t *testing.T) {
		_, err := env.svc.ToggleAssetSelection(ctx, id, domain.AssetKind("weapon"), char.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("Wrong step", func(t *testing.T) {
		other := env.openAt(t, domain.StepScript)
		_, err := env.svc.ToggleAssetSelection(ctx, other, domain.AssetKindCharacter, char.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestStoryboardGenerationOnAdvance(t *testing.T) {
	env := newStubEnv(t)
	ctx := context.Background()
	id := env.openAt(t, domain.StepAssets)

	st, taskID, err := env.svc.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StepStoryboard, st.Step)
	assert.NotEqual(t, uuid.Nil, taskID)

	st = env.waitState(t, id, func(st *domain.WizardState) bool { return len(st.Storyboards) == 3 })
	for i, sb := range st.Storyboards {
		assert.Equal(t, i+1, sb.Sequence)
		assert.NotEmpty(t, sb.Prompt)
	}

	// Возврат назад и повторное движение вперед не перегенерируют раскадровку
	originalIDs := []uuid.UUID{st.Storyboards[0].ID, st.Storyboards[1].ID, st.Storyboards[2].ID}
	_, err = env.svc.Retreat(ctx, id, domain.StepAssets)
	require.NoError(t, err)

	st, taskID, err = env.svc.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, taskID)
	require.Len(t, st.Storyboards, 3)
	for i, sb := range st.Storyboards {
		assert.Equal(t, originalIDs[i], sb.ID)
	}
}

func TestGenerationBusy(t *testing.T) {
	gen := newBlockingStoryboardGen([]domain.Storyboard{
		{ID: uuid.New(), Prompt: "released", Assets: domain.NewAssetBindings()},
	})
	gens := generator.NewStubSet(domain.ModelWan25, 0)
	gens.Storyboard = gen
	env := newTestEnv(t, gens)
	ctx := context.Background()

	id := env.openAt(t, domain.StepAssets)
	_, taskID, err := env.svc.Advance(ctx, id)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, taskID)
	<-gen.started

	// Повторный запуск отклоняется, а не ставится в очередь
	_, err = env.svc.GenerateStoryboards(ctx, id)
	assert.ErrorIs(t, err, domain.ErrGenerationInProgress)

	// Движение вперед на занятый этап тоже отклоняется, и шаг при этом
	// остается на месте: отвергнутый переход не меняет состояние
	_, err = env.svc.Retreat(ctx, id, domain.StepAssets)
	require.NoError(t, err)
	_, _, err = env.svc.Advance(ctx, id)
	assert.ErrorIs(t, err, domain.ErrGenerationInProgress)

	cur, err := env.svc.GetState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAssets, cur.Step)

	close(gen.release)
	st := env.waitState(t, id, func(st *domain.WizardState) bool { return len(st.Storyboards) == 1 })
	assert.Equal(t, "released", st.Storyboards[0].Prompt)

	// После применения результата переход и этап снова свободны
	_, _, err = env.svc.Advance(ctx, id)
	require.NoError(t, err)
	_, err = env.svc.GenerateStoryboards(ctx, id)
	require.NoError(t, err)
}

func TestCancelDropsLateResult(t *testing.T) {
	gen := newBlockingStoryboardGen([]domain.Storyboard{
		{ID: uuid.New(), Prompt: "late", Assets: domain.NewAssetBindings()},
	})
	gens := generator.NewStubSet(domain.ModelWan25, 0)
	gens.Storyboard = gen
	env := newTestEnv(t, gens)
	ctx := context.Background()

	id := env.openAt(t, domain.StepAssets)
	_, taskID, err := env.svc.Advance(ctx, id)
	require.NoError(t, err)
	<-gen.started

	require.NoError(t, env.svc.Cancel(ctx, id))
	close(gen.release)

	// Сессия уничтожена, поздний результат отброшен без паники
	_, err = env.svc.GetState(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.Eventually(t, func() bool {
		task, err := env.svc.GetTaskStatus(ctx, taskID)
		return err == nil && task.Status == taskmanager.StatusCancelled
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGenerationFailureLeavesStateUntouched(t *testing.T) {
	gens := generator.NewStubSet(domain.ModelWan25, 0)
	gens.Fusion = failingFusionGen{}
	env := newTestEnv(t, gens)
	ctx := context.Background()

	id := env.openAt(t, domain.StepStoryboard)
	before, err := env.svc.GetState(ctx, id)
	require.NoError(t, err)

	_, taskID, err := env.svc.Advance(ctx, id)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, taskID)

	assert.Eventually(t, func() bool {
		task, err := env.svc.GetTaskStatus(ctx, taskID)
		return err == nil && task.Status == taskmanager.StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	task, err := env.svc.GetTaskStatus(ctx, taskID)
	require.NoError(t, err)
	assert.Contains(t, task.Message, "render backend unavailable")

	// Прежние данные не тронуты: раскадровка цела, изображений не появилось
	st, err := env.svc.GetState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StepFusion, st.Step)
	assert.Empty(t, st.FusionImages)
	require.Len(t, st.Storyboards, len(before.Storyboards))
	for i := range st.Storyboards {
		assert.Equal(t, before.Storyboards[i].ID, st.Storyboards[i].ID)
	}

	// Отметка выполняющейся задачи снята, повторный запуск не занят
	_, err = env.svc.GenerateFusion(ctx, id)
	require.NoError(t, err)
}

func TestShotOperations(t *testing.T) {
	env := newStubEnv(t)
	ctx := context.Background()

	t.Run("Insert after second shot renumbers", func(t *testing.T) {
		id := env.openAt(t, domain.StepStoryboard)
		shot, err := env.svc.InsertShotAfter(ctx, id, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, shot.Sequence)
		assert.Equal(t, "New inserted segment", shot.ScriptContent)
		assert.Equal(t, "New shot description", shot.Prompt)

		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)
		require.Len(t, st.Storyboards, 4)
		for i, sb := range st.Storyboards {
			assert.Equal(t, i+1, sb.Sequence)
		}
	})

	t.Run("Delete unknown shot", func(t *testing.T) {
		id := env.openAt(t, domain.StepStoryboard)
		err := env.svc.DeleteShot(ctx, id, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Edit prompt reports no downstream before fusion", func(t *testing.T) {
		id := env.openAt(t, domain.StepStoryboard)
		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)

		stale, err := env.svc.EditShotPrompt(ctx, id, st.Storyboards[0].ID, "new prompt")
		require.NoError(t, err)
		assert.False(t, stale)

		st, err = env.svc.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "new prompt", st.Storyboards[0].Prompt)
	})

	t.Run("Edit prompt flags stale downstream", func(t *testing.T) {
		id := env.openAt(t, domain.StepFusion)
		_, err := env.svc.Retreat(ctx, id, domain.StepStoryboard)
		require.NoError(t, err)

		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)
		imagePrompt := st.FusionImages[0].Prompt

		stale, err := env.svc.EditShotPrompt(ctx, id, st.Storyboards[0].ID, "reworked")
		require.NoError(t, err)
		assert.True(t, stale)

		// Производное изображение осталось нетронутым
		st, err = env.svc.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, imagePrompt, st.FusionImages[0].Prompt)
	})

	t.Run("Shot asset must come from the selection", func(t *testing.T) {
		id := env.openAt(t, domain.StepAssets)
		char := env.project.Characters[0]
		_, err := env.svc.ToggleAssetSelection(ctx, id, domain.AssetKindCharacter, char.ID)
		require.NoError(t, err)

		_, _, err = env.svc.Advance(ctx, id)
		require.NoError(t, err)
		st := env.waitState(t, id, func(st *domain.WizardState) bool { return len(st.Storyboards) == 3 })

		shotID := st.Storyboards[0].ID
		require.NoError(t, env.svc.ToggleShotAsset(ctx, id, shotID, domain.AssetKindCharacter, char.ID))

		st, err = env.svc.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{char.ID}, st.Storyboards[0].Assets.CharacterIDs)

		// Ассет вне выбора второго шага отклоняется
		err = env.svc.ToggleShotAsset(ctx, id, shotID, domain.AssetKindProp, env.project.Props[0].ID)
		assert.ErrorIs(t, err, domain.ErrInvalidReference)
	})
}

func TestFusionOperations(t *testing.T) {
	env := newStubEnv(t)
	ctx := context.Background()

	t.Run("Images are generated one per shot", func(t *testing.T) {
		id := env.openAt(t, domain.StepFusion)
		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)

		require.Len(t, st.FusionImages, len(st.Storyboards))
		for i, img := range st.FusionImages {
			assert.Equal(t, st.Storyboards[i].ID, img.StoryboardID)
			assert.Equal(t, domain.FusionStatusReady, img.Status)
			assert.Equal(t, domain.ModelWan25, img.VideoModel)
		}
	})

	t.Run("Patch updates only given fields", func(t *testing.T) {
		id := env.openAt(t, domain.StepFusion)
		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)
		img := st.FusionImages[0]

		prompt := "patched prompt"
		resolution := domain.Resolution720p
		err = env.svc.UpdateFusionItem(ctx, id, img.ID, service.FusionItemPatch{
			Prompt:     &prompt,
			Resolution: &resolution,
		})
		require.NoError(t, err)

		st, err = env.svc.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "patched prompt", st.FusionImages[0].Prompt)
		assert.Equal(t, domain.Resolution720p, st.FusionImages[0].Resolution)
		assert.Equal(t, img.Duration, st.FusionImages[0].Duration)
	})

	t.Run("Global settings broadcast to all images", func(t *testing.T) {
		id := env.openAt(t, domain.StepFusion)
		model := domain.ModelSora
		require.NoError(t, env.svc.SetGlobalVideoSettings(ctx, id, domain.VideoSettingsPatch{Model: &model}))

		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ModelSora, st.GlobalVideo.Model)
		for _, img := range st.FusionImages {
			assert.Equal(t, domain.ModelSora, img.VideoModel)
		}
	})

	t.Run("Delete does not cascade", func(t *testing.T) {
		id := env.openAt(t, domain.StepFusion)
		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)
		shotCount := len(st.Storyboards)

		require.NoError(t, env.svc.DeleteFusionItem(ctx, id, st.FusionImages[1].ID))

		st, err = env.svc.GetState(ctx, id)
		require.NoError(t, err)
		assert.Len(t, st.FusionImages, 2)
		assert.Len(t, st.Storyboards, shotCount)
	})

	t.Run("Edits require the fusion step", func(t *testing.T) {
		id := env.openAt(t, domain.StepStoryboard)
		err := env.svc.DeleteFusionItem(ctx, id, uuid.New())
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestVideoOperations(t *testing.T) {
	env := newStubEnv(t)
	ctx := context.Background()

	t.Run("Batch generation confirms the first candidate", func(t *testing.T) {
		id := env.openAt(t, domain.StepVideoEdit)
		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)

		require.Len(t, st.FinalVideos, 3)
		for _, img := range st.FusionImages {
			assert.Equal(t, domain.FusionStatusDone, img.Status)
			candidates := st.CandidatesFor(img.ID)
			require.Len(t, candidates, 1)
			require.NotNil(t, img.ConfirmedVideoID)
			assert.Equal(t, candidates[0].ID, *img.ConfirmedVideoID)
		}
	})

	t.Run("Regenerate appends and confirms the newest", func(t *testing.T) {
		id := env.openAt(t, domain.StepVideoEdit)
		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)
		img := st.FusionImages[0]
		firstCandidate := st.CandidatesFor(img.ID)[0]

		_, err = env.svc.RegenerateVideo(ctx, id, img.ID, domain.RegenerateSettings{
			Model:      domain.ModelKling,
			Resolution: domain.Resolution720p,
			Duration:   domain.Duration10s,
			Count:      2,
			Prompt:     "regenerated",
		})
		require.NoError(t, err)

		st = env.waitState(t, id, func(st *domain.WizardState) bool {
			return len(st.CandidatesFor(img.ID)) == 3
		})

		// Прежние кандидаты сохраняются, подтвержден новейший
		candidates := st.CandidatesFor(img.ID)
		assert.Equal(t, firstCandidate.ID, candidates[0].ID)
		updated := st.FusionImageByID(img.ID)
		require.NotNil(t, updated.ConfirmedVideoID)
		assert.Equal(t, candidates[2].ID, *updated.ConfirmedVideoID)
		assert.Equal(t, "regenerated", candidates[2].Prompt)
		assert.Equal(t, domain.ModelKling, updated.VideoModel)
	})

	t.Run("Confirm rejects a foreign candidate", func(t *testing.T) {
		id := env.openAt(t, domain.StepVideoEdit)
		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)

		foreign := st.CandidatesFor(st.FusionImages[1].ID)[0]
		err = env.svc.ConfirmVideo(ctx, id, st.FusionImages[0].ID, foreign.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidReference)
	})

	t.Run("Confirm selects an own candidate", func(t *testing.T) {
		id := env.openAt(t, domain.StepVideoEdit)
		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)
		img := st.FusionImages[0]
		candidate := st.CandidatesFor(img.ID)[0]

		require.NoError(t, env.svc.ConfirmVideo(ctx, id, img.ID, candidate.ID))

		st, err = env.svc.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, candidate.ID, *st.FusionImageByID(img.ID).ConfirmedVideoID)
	})

	t.Run("Dubbing attaches to a candidate", func(t *testing.T) {
		id := env.openAt(t, domain.StepVideoEdit)
		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)
		video := st.FinalVideos[0]

		dub := domain.Dubbing{AudioURL: "https://cdn.sparkreel.dev/audio/voice.mp3", Voice: "narrator"}
		require.NoError(t, env.svc.SetDubbing(ctx, id, video.ID, dub))

		st, err = env.svc.GetState(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, st.FinalVideoByID(video.ID).Dubbing)
		assert.Equal(t, "narrator", st.FinalVideoByID(video.ID).Dubbing.Voice)
	})
}

func TestFinish(t *testing.T) {
	env := newStubEnv(t)
	ctx := context.Background()

	t.Run("Only allowed on the last step", func(t *testing.T) {
		id := env.openAt(t, domain.StepFusion)
		_, err := env.svc.Finish(ctx, id)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("Snippets are appended and the session is discarded", func(t *testing.T) {
		id := env.openAt(t, domain.StepVideoEdit)

		snippets, err := env.svc.Finish(ctx, id)
		require.NoError(t, err)
		require.Len(t, snippets, 3)
		for _, sn := range snippets {
			assert.Equal(t, env.project.ID, sn.ProjectID)
			assert.Contains(t, sn.Name, "Sword Saint")
			assert.Contains(t, sn.Name, "Part")
			assert.Equal(t, domain.SnippetModeScriptToVideo, sn.Mode)
			assert.NotEmpty(t, sn.VideoURL)
		}

		_, err = env.svc.GetState(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Image without candidates is skipped", func(t *testing.T) {
		id := env.openAt(t, domain.StepFusion)
		st, err := env.svc.GetState(ctx, id)
		require.NoError(t, err)

		// Удаляем одно изображение до генерации видео
		require.NoError(t, env.svc.DeleteFusionItem(ctx, id, st.FusionImages[2].ID))

		_, _, err = env.svc.Advance(ctx, id)
		require.NoError(t, err)
		env.waitState(t, id, func(st *domain.WizardState) bool { return len(st.FinalVideos) == 2 })

		snippets, err := env.svc.Finish(ctx, id)
		require.NoError(t, err)
		assert.Len(t, snippets, 2)
	})
}

func TestOptimizePromptFallsBackToInput(t *testing.T) {
	env := newStubEnv(t)
	assert.Equal(t, "raw prompt", env.svc.OptimizePrompt(context.Background(), "raw prompt"))
}
