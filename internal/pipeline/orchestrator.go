// Package pipeline wires the Ring Buffer, Chunker, STT Engine, Speaker
// Engine, Hallucination Filter, Overlap Deduplicator and Markdown
// Writer into the three staged workers of spec.md §4.9/§5: capture,
// chunk-and-transcribe, persist. Adapted from the teacher's
// internal/service.RecordingService: same extract-locals-then-unlock
// idiom before a potentially long shutdown flush, same plain
// log/slog-style logging, same channel-staged worker layout.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"hoover/internal/chunker"
	"hoover/internal/config"
	"hoover/internal/dedup"
	"hoover/internal/hallucination"
	"hoover/internal/herr"
	"hoover/internal/markdown"
	"hoover/internal/ringbuffer"
	"hoover/internal/speaker"
	"hoover/internal/stt"
	"hoover/internal/vcs"
)

const joinDeadline = 30 * time.Second

// Orchestrator owns the three logical workers that form the recording
// pipeline, per spec.md §4.9.
type Orchestrator struct {
	cfg *config.Settings
	log *slog.Logger

	rb      *ringbuffer.RingBuffer
	chunks  *chunker.Chunker
	capture *CaptureSource

	sttProvider stt.Provider
	speakerEnc  *speaker.Encoder
	profiles    *speaker.Store
	dedup       *dedup.Deduplicator
	writer      *markdown.Writer
	vcsRepo     *vcs.Repo

	segments chan markdown.Segment

	shuttingDown atomic.Bool
	speakerIDOff atomic.Bool
	wg           sync.WaitGroup
	cancel       context.CancelFunc
	fatalErrMu   sync.Mutex
	fatalErr     error
}

// New constructs an Orchestrator wired according to cfg. speakerEnc
// and vcsRepo may be nil (speaker identification and VCS push are both
// optional, degrading per spec.md §7).
func New(cfg *config.Settings, sttProvider stt.Provider, speakerEnc *speaker.Encoder, profiles *speaker.Store, vcsRepo *vcs.Repo) (*Orchestrator, error) {
	capacity := cfg.Audio.BacklogSeconds * cfg.Audio.SampleRate
	minCapacity := 4 * int(cfg.Chunking.ChunkLenSecs*float64(cfg.Audio.SampleRate))
	if capacity < minCapacity {
		capacity = minCapacity
	}

	rb := ringbuffer.New(capacity)
	chunks := chunker.New(rb, chunker.Config{
		SampleRate:   cfg.Audio.SampleRate,
		ChunkLenSecs: cfg.Chunking.ChunkLenSecs,
		OverlapSecs:  cfg.Chunking.OverlapSecs,
		MinFlushSecs: cfg.Chunking.MinFlushSecs,
	})

	o := &Orchestrator{
		cfg:         cfg,
		log:         slog.With("component", "pipeline"),
		rb:          rb,
		chunks:      chunks,
		sttProvider: sttProvider,
		speakerEnc:  speakerEnc,
		profiles:    profiles,
		dedup:       dedup.New(),
		writer:      markdown.New(cfg.Writer.OutputDir),
		vcsRepo:     vcsRepo,
		segments:    make(chan markdown.Segment, 4),
	}

	capture, err := NewCaptureSource(cfg.Audio.Device, cfg.Audio.SampleRate, rb, o.onCaptureLost)
	if err != nil {
		return nil, err
	}
	o.capture = capture

	return o, nil
}

// RingBuffer exposes the shared Ring Buffer so UDP ingress can push
// decrypted PCM into the same queue the capture callback writes to,
// per spec.md §3's "UDP ingress ... writes decrypted PCM into the same
// Ring Buffer" rule.
func (o *Orchestrator) RingBuffer() *ringbuffer.RingBuffer {
	return o.rb
}

// onCaptureLost implements spec.md §7's AudioDeviceLost policy: log,
// attempt one reopen, else abort recording with exit 3. The reopen
// runs on its own goroutine since this callback fires from malgo's
// device thread and Reopen tears down and recreates that same device.
func (o *Orchestrator) onCaptureLost(err error) {
	o.log.Error("audio device lost", "error", err)
	go o.recoverCapture()
}

func (o *Orchestrator) recoverCapture() {
	if err := o.capture.Reopen(); err != nil {
		wrapped := fmt.Errorf("%w: reopen failed: %v", herr.ErrAudioDeviceLost, err)
		o.log.Error("audio device reopen failed, aborting recording", "error", wrapped)
		o.setFatal(wrapped)
		return
	}
	o.log.Info("audio device reopened after loss")
}

func (o *Orchestrator) setFatal(err error) {
	o.fatalErrMu.Lock()
	if o.fatalErr == nil {
		o.fatalErr = err
	}
	o.fatalErrMu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Run starts all stages and blocks until ctx is cancelled (SIGINT, or a
// fatal error escalated via setFatal) and every stage has drained, per
// the shutdown sequence in spec.md §5.
func (o *Orchestrator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	defer cancel()

	if err := o.capture.Start(); err != nil {
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.chunks.Run()
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.transcribeWorker()
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.writerWorker()
	}()

	<-runCtx.Done()
	if err := o.shutdown(); err != nil {
		return err
	}

	o.fatalErrMu.Lock()
	defer o.fatalErrMu.Unlock()
	return o.fatalErr
}

// shutdown implements spec.md §5: stop accepting audio, let the
// Chunker drain into one last chunk, let transcribe drain queued
// chunks, let the writer drain and flush, flush the profile store,
// then fire the VCS hook. Threads that miss the 30s join deadline are
// logged and detached rather than blocking shutdown forever; every
// segment is fsynced as it's written so on-disk state stays consistent
// either way.
func (o *Orchestrator) shutdown() error {
	o.shuttingDown.Store(true)
	o.log.Info("shutdown: stopping capture")
	o.capture.Stop()
	o.rb.Close() // lets the chunker's blocked PopExact return and drain

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(joinDeadline):
		o.log.Warn("shutdown: join deadline exceeded, detaching remaining workers")
	}

	o.capture.Close()
	if err := o.writer.Close(); err != nil {
		o.log.Error("closing markdown writer", "error", err)
	}

	if o.profiles != nil {
		if err := o.profiles.Flush(); err != nil {
			o.log.Error("flushing speaker profiles", "error", err)
		}
	}

	if o.vcsRepo != nil {
		if err := o.vcsRepo.CommitThenPush(); err != nil {
			o.log.Error("vcs commit/push failed", "error", err)
			return fmt.Errorf("vcs commit/push: %w", err)
		}
	}

	o.log.Info("shutdown complete")
	return nil
}

// transcribeWorker is stage 2: pops chunks, runs STT and the Speaker
// Engine sequentially on the same chunk (spec.md §5: "called
// sequentially... to simplify GPU memory pressure"), applies the
// Hallucination Filter and Overlap Deduplicator, and emits segments.
func (o *Orchestrator) transcribeWorker() {
	for chunk := range o.chunks.Chunks() {
		o.processChunk(chunk)
	}
	close(o.segments)
}

func (o *Orchestrator) processChunk(chunk chunker.Chunk) {
	ctx := context.Background()

	utterances, err := o.sttProvider.Transcribe(ctx, chunk.Samples)
	if err != nil {
		o.log.Warn("stt transcription failed, dropping chunk", "seq", chunk.Sequence, "error", err)
		return
	}
	if len(utterances) == 0 {
		return
	}

	var speakerName string
	if o.speakerEnc != nil && o.profiles != nil && !o.speakerIDOff.Load() {
		speakerName = o.identifySpeaker(chunk.Samples)
		if speakerName == "" && o.cfg.Speaker.FilterUnknown {
			return
		}
	}

	sole := len(utterances) == 1
	for _, u := range utterances {
		if !hallucination.Keep(hallucination.Utterance{Text: u.Text, NoSpeechProb: u.NoSpeechProb}, sole) {
			continue
		}

		text, suppress := o.dedup.Dedup(u.Text)
		if suppress {
			continue
		}

		minuteKey := chunk.StartTime.Format("15:04")
		o.segments <- markdown.Segment{
			MinuteKey: minuteKey,
			Text:      text,
			Speaker:   speakerName,
			ChunkSeq:  chunk.Sequence,
		}
	}
}

// identifySpeaker implements spec.md §7's SpeakerModelError policy: on
// the first embedding failure, disable speaker identification for the
// rest of the session and keep transcribing unattributed.
func (o *Orchestrator) identifySpeaker(samples []float32) string {
	embedding, err := o.speakerEnc.Embed(samples)
	if err != nil {
		o.speakerIDOff.Store(true)
		o.log.Error("speaker embedding failed, disabling speaker identification for the rest of the session",
			"error", fmt.Errorf("%w: %v", herr.ErrSpeakerModel, err))
		return ""
	}

	name, sim, ok := o.profiles.Match(embedding, o.cfg.Speaker.MinConfidence)
	if !ok {
		return ""
	}

	if err := o.profiles.Refine(name, embedding); err != nil {
		o.log.Warn("refining speaker profile failed", "speaker", name, "error", err)
	} else if err := o.profiles.MaybeFlush(); err != nil {
		o.log.Warn("debounced profile flush failed", "error", err)
	}

	o.log.Debug("speaker matched", "name", name, "similarity", strconv.FormatFloat(float64(sim), 'f', 3, 32))
	return name
}

// writerWorker is stage 3: writes segments to markdown in strict
// chunk-sequence order (spec.md §5), since they arrive in that order
// from the single transcribe worker.
func (o *Orchestrator) writerWorker() {
	for seg := range o.segments {
		if err := o.writer.Write(seg); err != nil {
			o.log.Error("markdown write failed", "error", err)
		}
	}
}

