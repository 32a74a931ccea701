package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pressbox/internal/assetstore"
	"pressbox/internal/encode"
	"pressbox/internal/fileutil"
	"pressbox/internal/logging"
	"pressbox/internal/media/probe"
	"pressbox/internal/metrics"
	"pressbox/internal/profile"
	"pressbox/internal/raster"
	"pressbox/internal/sample"
	"pressbox/internal/services"
	"pressbox/internal/thumbnail"
)

// frameSource is the decode side of one pipeline.
type frameSource interface {
	Next() (image.Image, error)
	Close()
}

// encoderSink is the encode side of one pipeline.
type encoderSink interface {
	Start(ctx context.Context) error
	PushFrame(pix []byte) error
	Finalize() (string, error)
	Abort()
}

// Dependencies are the pipeline's pluggable seams. Production wiring is the
// real ffmpeg-backed stages; tests substitute fakes.
type Dependencies struct {
	Probe      func(ctx context.Context, path string) (probe.Info, error)
	Negotiate  func(ctx context.Context) (string, error)
	OpenSource func(ctx context.Context, opts sample.DecoderOptions) (frameSource, error)
	NewSink    func(opts encode.Options) (encoderSink, error)
	CheckAudio func(ctx context.Context, path string) error
	Thumbnail  func(ctx context.Context, source string, duration float64, dest string) error
	Promote    func(stagingPath, finalPath string) error
}

// Config carries the tunables one orchestrator needs.
type Config struct {
	FFmpegBinary                  string
	FFprobeBinary                 string
	StagingDir                    string
	OutputDir                     string
	ProbeTimeout                  time.Duration
	AudioTimeout                  time.Duration
	CodecPreference               []string
	ReferenceThroughputBytesPerMs float64
	ThumbnailWidth                int
}

// Orchestrator runs whole compression requests end to end. It holds no
// per-request state: every Compress call owns its own decode and encode
// handles, so independent calls can run concurrently.
type Orchestrator struct {
	cfg     Config
	catalog *profile.Catalog
	store   assetstore.Store
	logger  *slog.Logger
	deps    Dependencies
}

// New builds an orchestrator with production wiring. store may be nil when
// the caller keeps outputs on the local filesystem.
func New(cfg Config, catalog *profile.Catalog, store assetstore.Store, logger *slog.Logger) *Orchestrator {
	return NewWithDependencies(cfg, catalog, store, logger, Dependencies{
		Probe: func(ctx context.Context, path string) (probe.Info, error) {
			return probe.Inspect(ctx, cfg.FFprobeBinary, path, cfg.ProbeTimeout)
		},
		Negotiate: func(ctx context.Context) (string, error) {
			return encode.Negotiate(ctx, cfg.FFmpegBinary, cfg.CodecPreference)
		},
		OpenSource: func(ctx context.Context, opts sample.DecoderOptions) (frameSource, error) {
			decoder, err := sample.NewDecoder(opts)
			if err != nil {
				return nil, err
			}
			if err := decoder.Start(ctx); err != nil {
				return nil, err
			}
			return decoder, nil
		},
		NewSink: func(opts encode.Options) (encoderSink, error) {
			return encode.NewSession(opts)
		},
		CheckAudio: func(ctx context.Context, path string) error {
			return encode.CheckAudio(ctx, cfg.FFmpegBinary, path, cfg.AudioTimeout)
		},
		Thumbnail: func(ctx context.Context, source string, duration float64, dest string) error {
			return thumbnail.Save(ctx, thumbnail.Options{
				Binary:           cfg.FFmpegBinary,
				SourcePath:       source,
				TimestampSeconds: duration / 2,
				DurationSeconds:  duration,
				Width:            cfg.ThumbnailWidth,
				Timeout:          cfg.ProbeTimeout,
			}, dest)
		},
		Promote: promoteOutput,
	})
}

// NewWithDependencies is the injectable constructor used by tests.
func NewWithDependencies(cfg Config, catalog *profile.Catalog, store assetstore.Store, logger *slog.Logger, deps Dependencies) *Orchestrator {
	if catalog == nil {
		catalog = profile.DefaultCatalog()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:     cfg,
		catalog: catalog,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		deps:    deps,
	}
}

// Compress runs one request to completion: probe, pass-through check,
// profile resolution, codec negotiation, the sample/encode loop, finalize,
// metrics, thumbnail, and optional asset-store publication. Any fatal stage
// error aborts the run and releases every handle before surfacing; partial
// outputs are never returned or uploaded.
func (o *Orchestrator) Compress(ctx context.Context, request Request) (Result, error) {
	if err := request.validate(); err != nil {
		return Result{}, err
	}

	// Context carries run correlation (and the worker's job ID, when there
	// is one) into every log line below.
	runID := uuid.NewString()[:8]
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)
	progress := newProgressController(request.Progress, logger, "encode")
	started := time.Now()

	info, err := o.deps.Probe(ctx, request.SourcePath)
	if err != nil {
		return Result{}, err
	}
	logger.Info("source probed",
		logging.Float64("duration_seconds", info.DurationSeconds),
		logging.Int("width", info.Width),
		logging.Int("height", info.Height),
		logging.Int64("size_bytes", info.SizeBytes))

	prof, err := o.catalog.Resolve(request.ProfileName)
	if err != nil {
		return Result{}, err
	}

	if info.UnderTarget(request.TargetSizeBytes) {
		return o.passThrough(ctx, request, info, prof, progress, started, runID, logger)
	}

	plan, err := NewPlan(info, prof)
	if err != nil {
		return Result{}, err
	}
	logger.Info("compression planned",
		logging.String(logging.FieldProfile, prof.Name),
		logging.Int("target_width", plan.Width),
		logging.Int("target_height", plan.Height),
		logging.Int64("total_frames", plan.TotalFrames))

	codec, err := o.deps.Negotiate(ctx)
	if err != nil {
		return Result{}, err
	}
	ctx = services.WithStage(ctx, "encode")
	logger = logging.WithContext(ctx, o.logger)

	var warnings []string
	audio, warnings := o.audioTrack(ctx, request, info, prof, warnings, logger)

	base := sourceBase(request.SourcePath)
	outputName := fmt.Sprintf("%s-%s-%s%s", base, prof.Name, runID, encode.ContainerExtension(codec))
	outputPath := filepath.Join(o.cfg.OutputDir, outputName)
	// The encoder works inside the staging directory so readers of the
	// output directory never observe a half-written container.
	stagingPath := outputPath
	if o.cfg.StagingDir != "" {
		stagingPath = filepath.Join(o.cfg.StagingDir, outputName)
	}

	sink, err := o.deps.NewSink(encode.Options{
		Binary:          o.cfg.FFmpegBinary,
		Codec:           codec,
		Width:           plan.Width,
		Height:          plan.Height,
		FrameRate:       plan.FrameRate,
		VideoBitrateBps: prof.VideoBitrateBps,
		OutputPath:      stagingPath,
		Audio:           audio,
		Logger:          logger,
	})
	if err != nil {
		return Result{}, err
	}
	if err := sink.Start(ctx); err != nil {
		return Result{}, err
	}
	defer sink.Abort()

	source, err := o.deps.OpenSource(ctx, sample.DecoderOptions{
		Binary:     o.cfg.FFmpegBinary,
		SourcePath: request.SourcePath,
		Width:      info.Width,
		Height:     info.Height,
		FrameRate:  plan.FrameRate,
	})
	if err != nil {
		return Result{}, err
	}
	defer source.Close()

	buffer, err := raster.NewBuffer(plan.Width, plan.Height)
	if err != nil {
		return Result{}, err
	}
	sampler, err := sample.NewSampler(source, buffer, sink, plan.FrameStride, plan.TotalFrames, progress.Tick)
	if err != nil {
		return Result{}, err
	}
	pushed, err := sampler.Run(ctx)
	if err != nil {
		return Result{}, err
	}
	logger.Info("capture finished", logging.Int64("frames", pushed))

	if _, err := sink.Finalize(); err != nil {
		return Result{}, err
	}

	compressed, audioOK, warnings := o.validateOutput(ctx, stagingPath, audio != nil, warnings, logger)
	if compressed <= 0 {
		return Result{}, services.Wrap(services.ErrEncodeFailed, "pipeline", "validate output", "finalized output is missing or empty", nil)
	}

	if stagingPath != outputPath {
		if err := o.deps.Promote(stagingPath, outputPath); err != nil {
			return Result{}, services.Wrap(services.ErrEncodeFailed, "pipeline", "promote output", "failed to move validated output out of staging", err)
		}
	}

	record, err := metrics.Compute(info.SizeBytes, compressed, time.Since(started), o.cfg.ReferenceThroughputBytesPerMs)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		OutputPath:           outputPath,
		OriginalSizeBytes:    record.OriginalSizeBytes,
		CompressedSizeBytes:  record.CompressedSizeBytes,
		CompressionRatio:     record.CompressionRatio,
		ProcessingDurationMs: record.ProcessingDurationMs,
		ProfileUsed:          prof.Name,
		QualityScore:         prof.QualityScore,
		SpeedFactor:          record.SpeedFactor,
		AudioPreserved:       audioOK,
		Warnings:             warnings,
	}

	result = o.attachThumbnail(ctx, request.SourcePath, info.DurationSeconds, base, runID, result, logger)
	result = o.publish(ctx, result, logger)

	progress.Complete()
	logger.Info("compression complete",
		logging.String(logging.FieldProfile, prof.Name),
		logging.Float64("ratio", result.CompressionRatio),
		logging.Int64("duration_ms", result.ProcessingDurationMs))
	return result, nil
}

// promoteOutput moves a validated container from staging into the output
// directory, falling back to a verified copy when the two live on different
// filesystems.
func promoteOutput(stagingPath, finalPath string) error {
	if err := os.Rename(stagingPath, finalPath); err == nil {
		return nil
	}
	if err := fileutil.CopyVerified(stagingPath, finalPath); err != nil {
		return err
	}
	return os.Remove(stagingPath)
}

// passThrough hands the original asset back untouched when it already meets
// the target size. No encode work happens; the thumbnail and asset-store
// publication still run.
func (o *Orchestrator) passThrough(ctx context.Context, request Request, info probe.Info, prof profile.Profile, progress *progressController, started time.Time, runID string, logger *slog.Logger) (Result, error) {
	record := metrics.PassThrough(info.SizeBytes, time.Since(started))
	result := Result{
		OutputPath:           request.SourcePath,
		OriginalSizeBytes:    record.OriginalSizeBytes,
		CompressedSizeBytes:  record.CompressedSizeBytes,
		CompressionRatio:     record.CompressionRatio,
		ProcessingDurationMs: record.ProcessingDurationMs,
		ProfileUsed:          prof.Name,
		QualityScore:         prof.QualityScore,
		SpeedFactor:          record.SpeedFactor,
		AudioPreserved:       request.PreserveAudio && info.HasAudio,
		PassThrough:          true,
	}
	result = o.attachThumbnail(ctx, request.SourcePath, info.DurationSeconds, sourceBase(request.SourcePath), runID, result, logger)
	result = o.publish(ctx, result, logger)
	progress.Complete()
	logger.Info("pass-through, source already under target",
		logging.Int64("size_bytes", info.SizeBytes),
		logging.Int64("target_bytes", request.TargetSizeBytes))
	return result, nil
}

// audioTrack decides whether the session carries audio. Audio problems
// degrade to video-only with a recorded warning; they never abort the run.
func (o *Orchestrator) audioTrack(ctx context.Context, request Request, info probe.Info, prof profile.Profile, warnings []string, logger *slog.Logger) (*encode.AudioTrack, []string) {
	if !request.PreserveAudio {
		return nil, warnings
	}
	if !prof.HasAudio() {
		return nil, append(warnings, fmt.Sprintf("profile %s allocates no audio track; audio dropped", prof.Name))
	}
	if !info.HasAudio {
		return nil, append(warnings, "source has no audio track")
	}
	if err := o.deps.CheckAudio(ctx, request.SourcePath); err != nil {
		logger.Warn("audio decode failed, continuing video-only", logging.Error(err))
		return nil, append(warnings, "audio track could not be decoded; continuing video-only")
	}
	return &encode.AudioTrack{SourcePath: request.SourcePath, BitrateBps: prof.AudioBitrateBps}, warnings
}

// validateOutput re-probes the finalized container. A missing or unreadable
// output is fatal (reported via compressed <= 0); a missing audio stream on
// a run that attached audio degrades to AudioPreserved=false.
func (o *Orchestrator) validateOutput(ctx context.Context, outputPath string, audioAttached bool, warnings []string, logger *slog.Logger) (int64, bool, []string) {
	out, err := o.deps.Probe(ctx, outputPath)
	if err != nil {
		logger.Error("finalized output failed validation", logging.Error(err))
		return 0, false, warnings
	}
	if !audioAttached {
		return out.SizeBytes, false, warnings
	}
	if !out.HasAudio {
		logger.Warn("output is missing the attached audio track")
		return out.SizeBytes, false, append(warnings, "output is missing the audio track; reported as video-only")
	}
	return out.SizeBytes, true, warnings
}

// attachThumbnail extracts a preview frame from the source. Thumbnail
// failures are recorded as warnings, never fatal: the compressed asset is
// already valid at this point.
func (o *Orchestrator) attachThumbnail(ctx context.Context, source string, duration float64, base, runID string, result Result, logger *slog.Logger) Result {
	dest := filepath.Join(o.cfg.OutputDir, fmt.Sprintf("%s-%s-thumb.png", base, runID))
	if err := o.deps.Thumbnail(ctx, source, duration, dest); err != nil {
		logger.Warn("thumbnail extraction failed", logging.Error(err))
		result.Warnings = append(result.Warnings, "thumbnail extraction failed")
		return result
	}
	result.ThumbnailPath = dest
	return result
}

// publish uploads the finalized output and thumbnail when an asset store is
// configured. Nothing reaches the store before validation succeeds.
func (o *Orchestrator) publish(ctx context.Context, result Result, logger *slog.Logger) Result {
	if o.store == nil {
		return result
	}
	url, err := o.store.Upload(ctx, result.OutputPath, filepath.Base(result.OutputPath))
	if err != nil {
		logger.Warn("asset upload failed", logging.Error(err))
		result.Warnings = append(result.Warnings, "asset store upload failed; output kept locally")
		return result
	}
	result.OutputURL = url
	if result.ThumbnailPath != "" {
		thumbURL, err := o.store.Upload(ctx, result.ThumbnailPath, filepath.Base(result.ThumbnailPath))
		if err != nil {
			logger.Warn("thumbnail upload failed", logging.Error(err))
			result.Warnings = append(result.Warnings, "thumbnail upload failed; kept locally")
			return result
		}
		result.ThumbnailURL = thumbURL
	}
	return result
}

func sourceBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
