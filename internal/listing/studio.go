package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Scene instructions for the generated gallery.
const (
	NeutralInstruction   = "Professional product photography on a clean, solid neutral studio background."
	LifestyleInstruction = "Place this object in a realistic, high-quality, cozy home or lifestyle setting with natural lighting."
)

var (
	ErrBusy              = errors.New("another generation is already running")
	ErrNoSourceImage     = errors.New("no source image")
	ErrInvalidImageCount = errors.New("invalid image count")
	ErrNotReviewing      = errors.New("no generated listing to work on")
	ErrUnknownSlot       = errors.New("unknown image slot")
)

// Synthesizer turns the source photo into listing text.
type Synthesizer interface {
	Synthesize(ctx context.Context, img SourceImage) (*Draft, error)
}

// VariationGenerator produces a new picture of the item following a free
// text scene instruction. The result is a data URL.
type VariationGenerator interface {
	GenerateVariation(ctx context.Context, img SourceImage, instruction string) (string, error)
}

// DescriptionRefiner rewrites a listing description.
type DescriptionRefiner interface {
	RefineDescription(ctx context.Context, description string) (string, error)
}

// Studio runs the generation flows over a Session. It holds no listing
// state itself apart from the flag that allows a single flow at a time.
type Studio struct {
	synth   Synthesizer
	images  VariationGenerator
	refiner DescriptionRefiner

	mu      sync.Mutex
	running bool
}

// NewStudio creates a Studio. refiner may be nil, in which case
// RefineDescription is unavailable.
func NewStudio(synth Synthesizer, images VariationGenerator, refiner DescriptionRefiner) *Studio {
	return &Studio{
		synth:   synth,
		images:  images,
		refiner: refiner,
	}
}

// Busy reports whether a flow is in progress.
func (st *Studio) Busy() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.running
}

func (st *Studio) acquire() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.running {
		return false
	}
	st.running = true
	return true
}

func (st *Studio) release() {
	st.mu.Lock()
	st.running = false
	st.mu.Unlock()
}

// Generate runs the full pipeline: listing text, then the cover image, then
// imageCount lifestyle images, strictly one after the other.
//
// The result is all or nothing. On success the returned session is in
// StageReviewing with the draft and 1+imageCount images. On any step
// failure it is back in StageAwaitingInput with the photo kept and nothing
// else, and the error is returned. Precondition failures (ErrBusy,
// ErrNoSourceImage, ErrInvalidImageCount) return s unchanged.
func (st *Studio) Generate(ctx context.Context, s Session, imageCount int, onProgress ProgressFunc) (Session, error) {
	if !s.HasSource() {
		return s, ErrNoSourceImage
	}
	if imageCount < MinImageCount || imageCount > MaxImageCount {
		return s, fmt.Errorf("%w: %d (allowed %d-%d)", ErrInvalidImageCount, imageCount, MinImageCount, MaxImageCount)
	}
	if !st.acquire() {
		return s, ErrBusy
	}
	defer st.release()

	report := progressReporter(onProgress)
	defer report(Progress{Step: StepIdle})

	logger := log.With().Str("runID", uuid.NewString()).Int("imageCount", imageCount).Logger()
	logger.Info().Msg("listing generation started")
	started := time.Now()

	report(Progress{Step: StepAnalyzing})
	draft, err := st.synth.Synthesize(ctx, s.Source)
	if err != nil {
		logger.Error().Err(err).Str("step", "synthesize").Msg("listing generation aborted")
		return s.Restart(), fmt.Errorf("analyze item: %w", err)
	}
	logger.Info().Str("title", draft.Title).Int("tips", len(draft.Tips)).Msg("listing text generated")

	images := make([]GeneratedImage, 0, imageCount+1)

	report(Progress{Step: StepCoverImage})
	url, err := st.generateImage(ctx, logger, s.Source, NeutralSlotID, NeutralInstruction)
	if err != nil {
		return s.Restart(), fmt.Errorf("cover image: %w", err)
	}
	images = append(images, GeneratedImage{ID: NeutralSlotID, URL: url, Kind: ImageKindNeutral})

	for i := 0; i < imageCount; i++ {
		report(Progress{Step: StepLifestyle, Current: i + 1, Total: imageCount})
		id := LifestyleSlotID(i)
		url, err := st.generateImage(ctx, logger, s.Source, id, LifestyleInstruction)
		if err != nil {
			return s.Restart(), fmt.Errorf("lifestyle image %d/%d: %w", i+1, imageCount, err)
		}
		images = append(images, GeneratedImage{ID: id, URL: url, Kind: ImageKindLifestyle})
	}

	logger.Info().Dur("elapsed", time.Since(started)).Msg("listing generation complete")
	return s.Commit(draft, images), nil
}

func (st *Studio) generateImage(ctx context.Context, logger zerolog.Logger, img SourceImage, slotID, instruction string) (string, error) {
	url, err := st.images.GenerateVariation(ctx, img, instruction)
	if err != nil {
		logger.Error().Err(err).Str("step", slotID).Msg("listing generation aborted")
		return "", err
	}
	logger.Debug().Str("slot", slotID).Int("urlLen", len(url)).Msg("image generated")
	return url, nil
}

// Regenerate replaces the picture of one slot using a custom scene
// instruction. An empty instruction is a no-op. On failure the session is
// returned unchanged together with the error.
func (st *Studio) Regenerate(ctx context.Context, s Session, slotID, instruction string, onProgress ProgressFunc) (Session, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return s, nil
	}
	if s.Stage != StageReviewing {
		return s, ErrNotReviewing
	}
	if _, ok := s.Image(slotID); !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	if !st.acquire() {
		return s, ErrBusy
	}
	defer st.release()

	report := progressReporter(onProgress)
	defer report(Progress{Step: StepIdle})
	report(Progress{Step: StepRegenerating})

	url, err := st.images.GenerateVariation(ctx, s.Source, instruction)
	if err != nil {
		log.Error().Err(err).Str("slot", slotID).Msg("image regeneration failed")
		return s, fmt.Errorf("regenerate %s: %w", slotID, err)
	}

	next, _ := s.WithImageURL(slotID, url)
	log.Info().Str("slot", slotID).Str("instruction", instruction).Msg("image regenerated")
	return next, nil
}

// RefineDescription asks the model for a more persuasive version of the
// current description and replaces it wholesale. On failure the session is
// returned unchanged together with the error.
func (st *Studio) RefineDescription(ctx context.Context, s Session, onProgress ProgressFunc) (Session, error) {
	if s.Stage != StageReviewing || s.Draft == nil {
		return s, ErrNotReviewing
	}
	if st.refiner == nil {
		return s, errors.New("description refinement is not configured")
	}
	if !st.acquire() {
		return s, ErrBusy
	}
	defer st.release()

	report := progressReporter(onProgress)
	defer report(Progress{Step: StepIdle})
	report(Progress{Step: StepRefining})

	description, err := st.refiner.RefineDescription(ctx, s.Draft.Description)
	if err != nil {
		log.Error().Err(err).Msg("description refinement failed")
		return s, fmt.Errorf("refine description: %w", err)
	}
	return s.WithDescription(description), nil
}

func progressReporter(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(Progress) {}
	}
	return fn
}
