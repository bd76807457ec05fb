package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSynthesizer struct {
	SynthesizeFunc func(ctx context.Context, img SourceImage) (*Draft, error)
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, img SourceImage) (*Draft, error) {
	return m.SynthesizeFunc(ctx, img)
}

type mockImages struct {
	mu           sync.Mutex
	calls        int
	instructions []string
	GenerateFunc func(call int, instruction string) (string, error)
}

func (m *mockImages) GenerateVariation(ctx context.Context, img SourceImage, instruction string) (string, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.instructions = append(m.instructions, instruction)
	m.mu.Unlock()
	return m.GenerateFunc(call, instruction)
}

type mockRefiner struct {
	RefineFunc func(ctx context.Context, description string) (string, error)
}

func (m *mockRefiner) RefineDescription(ctx context.Context, description string) (string, error) {
	return m.RefineFunc(ctx, description)
}

func chairDraft() *Draft {
	return &Draft{
		Title:       "Chaise vintage",
		Description: "Belle chaise en bois",
		Price:       "45 €",
		Tips:        []string{"Photo en lumière naturelle", "Mentionnez les dimensions", "Répondez vite"},
	}
}

func okSynth() *mockSynthesizer {
	return &mockSynthesizer{SynthesizeFunc: func(ctx context.Context, img SourceImage) (*Draft, error) {
		return chairDraft(), nil
	}}
}

func numberedImages() *mockImages {
	return &mockImages{GenerateFunc: func(call int, instruction string) (string, error) {
		return fmt.Sprintf("data:image/png;base64,img%d", call), nil
	}}
}

func sessionWithPhoto() Session {
	return NewSession().WithSource(SourceImage{Data: []byte("photo"), MIMEType: "image/jpeg"})
}

func reviewingSession(t *testing.T, st *Studio) Session {
	t.Helper()
	s, err := st.Generate(context.Background(), sessionWithPhoto(), 3, nil)
	require.NoError(t, err)
	return s
}

func TestStudio_Generate(t *testing.T) {
	images := numberedImages()
	st := NewStudio(okSynth(), images, nil)

	var steps []Progress
	s, err := st.Generate(context.Background(), sessionWithPhoto(), 3, func(p Progress) {
		steps = append(steps, p)
	})
	require.NoError(t, err)

	assert.Equal(t, StageReviewing, s.Stage)
	assert.Equal(t, "Chaise vintage", s.Draft.Title)
	assert.Len(t, s.Draft.Tips, 3)
	require.Len(t, s.Images, 4)
	assert.Equal(t, []string{"neutral", "action-0", "action-1", "action-2"}, imageIDs(s))
	assert.Equal(t, ImageKindNeutral, s.Images[0].Kind)
	assert.Equal(t, ImageKindLifestyle, s.Images[3].Kind)
	assert.Equal(t, "data:image/png;base64,img1", s.Images[0].URL)

	assert.Equal(t, []string{NeutralInstruction, LifestyleInstruction, LifestyleInstruction, LifestyleInstruction}, images.instructions)
	assert.Equal(t, []Progress{
		{Step: StepAnalyzing},
		{Step: StepCoverImage},
		{Step: StepLifestyle, Current: 1, Total: 3},
		{Step: StepLifestyle, Current: 2, Total: 3},
		{Step: StepLifestyle, Current: 3, Total: 3},
		{Step: StepIdle},
	}, steps)
	assert.False(t, st.Busy())
}

func TestStudio_Generate_SingleImage(t *testing.T) {
	st := NewStudio(okSynth(), numberedImages(), nil)
	s, err := st.Generate(context.Background(), sessionWithPhoto(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"neutral", "action-0"}, imageIDs(s))
}

func TestStudio_Generate_SynthesisFailure(t *testing.T) {
	boom := errors.New("quota")
	synth := &mockSynthesizer{SynthesizeFunc: func(ctx context.Context, img SourceImage) (*Draft, error) {
		return nil, boom
	}}
	images := numberedImages()
	st := NewStudio(synth, images, nil)

	var last Progress
	s, err := st.Generate(context.Background(), sessionWithPhoto(), 3, func(p Progress) { last = p })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StageAwaitingInput, s.Stage)
	assert.Nil(t, s.Draft)
	assert.Empty(t, s.Images)
	assert.True(t, s.HasSource())
	assert.Equal(t, 0, images.calls)
	assert.True(t, last.Done())
}

func TestStudio_Generate_LifestyleFailureDiscardsEverything(t *testing.T) {
	boom := errors.New("no image")
	images := &mockImages{GenerateFunc: func(call int, instruction string) (string, error) {
		if call == 3 {
			return "", boom
		}
		return "data:image/png;base64,ok", nil
	}}
	st := NewStudio(okSynth(), images, nil)

	s, err := st.Generate(context.Background(), sessionWithPhoto(), 3, nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "lifestyle image 2/3")
	assert.Equal(t, StageAwaitingInput, s.Stage)
	assert.Nil(t, s.Draft)
	assert.Empty(t, s.Images)
	assert.Equal(t, 3, images.calls)
}

func TestStudio_Generate_FromReviewingFailureDropsOldResult(t *testing.T) {
	images := numberedImages()
	st := NewStudio(okSynth(), images, nil)
	s := reviewingSession(t, st)

	images.GenerateFunc = func(call int, instruction string) (string, error) {
		return "", errors.New("down")
	}
	s, err := st.Generate(context.Background(), s, 2, nil)
	assert.Error(t, err)
	assert.Equal(t, StageAwaitingInput, s.Stage)
	assert.Empty(t, s.Images)
}

func TestStudio_Generate_Preconditions(t *testing.T) {
	st := NewStudio(okSynth(), numberedImages(), nil)

	_, err := st.Generate(context.Background(), NewSession(), 3, nil)
	assert.ErrorIs(t, err, ErrNoSourceImage)

	for _, n := range []int{0, -1, 6} {
		s, err := st.Generate(context.Background(), sessionWithPhoto(), n, nil)
		assert.ErrorIs(t, err, ErrInvalidImageCount)
		assert.Equal(t, StageAwaitingInput, s.Stage)
	}
}

func TestStudio_Generate_RefusedWhileBusy(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	synth := &mockSynthesizer{SynthesizeFunc: func(ctx context.Context, img SourceImage) (*Draft, error) {
		close(started)
		<-unblock
		return chairDraft(), nil
	}}
	st := NewStudio(synth, numberedImages(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := st.Generate(context.Background(), sessionWithPhoto(), 1, nil)
		done <- err
	}()
	<-started

	assert.True(t, st.Busy())
	s := sessionWithPhoto()
	got, err := st.Generate(context.Background(), s, 1, nil)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, s.Stage, got.Stage)

	close(unblock)
	require.NoError(t, <-done)
	assert.False(t, st.Busy())
}

func TestStudio_Regenerate(t *testing.T) {
	images := numberedImages()
	st := NewStudio(okSynth(), images, nil)
	before := reviewingSession(t, st)

	var steps []Progress
	after, err := st.Regenerate(context.Background(), before, "action-1", "  sur une plage  ", func(p Progress) {
		steps = append(steps, p)
	})
	require.NoError(t, err)

	assert.Equal(t, "sur une plage", images.instructions[len(images.instructions)-1])
	assert.Equal(t, imageIDs(before), imageIDs(after))
	for i, img := range after.Images {
		if img.ID == "action-1" {
			assert.Equal(t, "data:image/png;base64,img5", img.URL)
			assert.NotEqual(t, before.Images[i].URL, img.URL)
		} else {
			assert.Equal(t, before.Images[i], img)
		}
	}
	assert.Equal(t, before.Draft, after.Draft)
	assert.Equal(t, []Progress{{Step: StepRegenerating}, {Step: StepIdle}}, steps)
}

func TestStudio_Regenerate_EmptyInstructionIsNoop(t *testing.T) {
	images := numberedImages()
	st := NewStudio(okSynth(), images, nil)
	before := reviewingSession(t, st)
	calls := images.calls

	after, err := st.Regenerate(context.Background(), before, "neutral", "   ", nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, calls, images.calls)
}

func TestStudio_Regenerate_FailureKeepsSession(t *testing.T) {
	images := numberedImages()
	st := NewStudio(okSynth(), images, nil)
	before := reviewingSession(t, st)

	images.GenerateFunc = func(call int, instruction string) (string, error) {
		return "", errors.New("rate limited")
	}
	after, err := st.Regenerate(context.Background(), before, "neutral", "fond blanc", nil)
	assert.Error(t, err)
	assert.Equal(t, before, after)
}

func TestStudio_Regenerate_Preconditions(t *testing.T) {
	st := NewStudio(okSynth(), numberedImages(), nil)

	_, err := st.Regenerate(context.Background(), sessionWithPhoto(), "neutral", "fond blanc", nil)
	assert.ErrorIs(t, err, ErrNotReviewing)

	s := reviewingSession(t, st)
	_, err = st.Regenerate(context.Background(), s, "action-7", "fond blanc", nil)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestStudio_RefineDescription(t *testing.T) {
	refiner := &mockRefiner{RefineFunc: func(ctx context.Context, description string) (string, error) {
		return "Superbe " + description, nil
	}}
	st := NewStudio(okSynth(), numberedImages(), refiner)
	before := reviewingSession(t, st)

	after, err := st.RefineDescription(context.Background(), before, nil)
	require.NoError(t, err)
	assert.Equal(t, "Superbe Belle chaise en bois", after.Draft.Description)
	assert.Equal(t, "Belle chaise en bois", before.Draft.Description)
	assert.Equal(t, before.Draft.Title, after.Draft.Title)
	assert.Equal(t, before.Images, after.Images)
}

func TestStudio_RefineDescription_FailureKeepsSession(t *testing.T) {
	refiner := &mockRefiner{RefineFunc: func(ctx context.Context, description string) (string, error) {
		return "", errors.New("timeout")
	}}
	st := NewStudio(okSynth(), numberedImages(), refiner)
	before := reviewingSession(t, st)

	after, err := st.RefineDescription(context.Background(), before, nil)
	assert.Error(t, err)
	assert.Equal(t, before, after)
}

func TestStudio_RefineDescription_Preconditions(t *testing.T) {
	st := NewStudio(okSynth(), numberedImages(), nil)

	_, err := st.RefineDescription(context.Background(), sessionWithPhoto(), nil)
	assert.ErrorIs(t, err, ErrNotReviewing)

	_, err = st.RefineDescription(context.Background(), reviewingSession(t, st), nil)
	assert.Error(t, err)
}

func imageIDs(s Session) []string {
	ids := make([]string, 0, len(s.Images))
	for _, img := range s.Images {
		ids = append(ids, img.ID)
	}
	return ids
}
