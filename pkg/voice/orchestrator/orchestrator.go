// Package orchestrator runs the streaming reply pipeline: completion tokens
// in, synthesized sentence chunks out, with the first chunk surfaced as soon
// as it is ready.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"voice-journal-be/pkg/llm"
	"voice-journal-be/pkg/tts"
	"voice-journal-be/pkg/voice/segmenter"
)

var (
	// ErrStreamFailed means the completion stream could not be opened or died
	// mid-reply. The whole turn is aborted and in-flight synthesis cancelled.
	ErrStreamFailed = errors.New("completion stream failed")

	// ErrAllSynthesisFailed is returned only when the reply produced sentences
	// and every single synthesis call failed. Partial failures degrade to
	// missing chunks instead.
	ErrAllSynthesisFailed = errors.New("synthesis failed for every sentence")
)

// Chunk is one synthesized sentence. Index is the sentence's position in the
// reply, not the order synthesis finished in.
type Chunk struct {
	Index       int
	Text        string
	AudioRef    string
	ContentType string
	Duration    time.Duration
}

// Result is the joined outcome of a run. Text always carries the full reply;
// Chunks is sorted by Index and omits sentences whose synthesis failed.
type Result struct {
	Text     string
	Chunks   []Chunk
	Failed   int
	Duration time.Duration
}

type Orchestrator struct {
	LLM   llm.LLMProvider
	TTS   tts.Provider
	Voice string
	Opts  []llm.Option
}

func New(llmProvider llm.LLMProvider, ttsProvider tts.Provider, voice string, opts ...llm.Option) *Orchestrator {
	return &Orchestrator{
		LLM:   llmProvider,
		TTS:   ttsProvider,
		Voice: voice,
		Opts:  opts,
	}
}

// Run is one in-flight reply. FirstAudio resolves exactly once: with the
// opening sentence's chunk when its synthesis succeeds, or closed empty when
// it fails or the reply has no sentences.
type Run struct {
	firstAudio chan *Chunk
	done       chan struct{}
	result     *Result
	err        error
}

func (r *Run) FirstAudio() <-chan *Chunk {
	return r.firstAudio
}

// Wait blocks until every sentence has settled and returns the joined result.
func (r *Run) Wait() (*Result, error) {
	<-r.done
	return r.result, r.err
}

// Start opens the completion stream and begins synthesizing sentences as
// they complete. Each sentence synthesizes on its own goroutine so a slow
// one never stalls the ones behind it.
func (o *Orchestrator) Start(ctx context.Context, history []llm.Message) *Run {
	run := &Run{
		firstAudio: make(chan *Chunk, 1),
		done:       make(chan struct{}),
	}
	go o.execute(ctx, history, run)
	return run
}

func (o *Orchestrator) execute(ctx context.Context, history []llm.Message, run *Run) {
	defer close(run.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tokens, err := o.LLM.ChatStream(ctx, history, o.Opts...)
	if err != nil {
		close(run.firstAudio)
		run.err = fmt.Errorf("%w: %v", ErrStreamFailed, err)
		return
	}

	var (
		mu        sync.Mutex
		chunks    []Chunk
		failed    int
		wg        sync.WaitGroup
		firstOnce sync.Once
	)

	synthesize := func(index int, sentence string) {
		defer wg.Done()

		res, synthErr := o.TTS.Synthesize(ctx, sentence, o.Voice)

		var chunk *Chunk
		mu.Lock()
		if synthErr != nil {
			failed++
		} else {
			chunk = &Chunk{
				Index:       index,
				Text:        sentence,
				AudioRef:    res.AudioRef,
				ContentType: res.ContentType,
				Duration:    res.Duration,
			}
			chunks = append(chunks, *chunk)
		}
		mu.Unlock()

		if index == 0 {
			firstOnce.Do(func() {
				if chunk != nil {
					run.firstAudio <- chunk
				}
				close(run.firstAudio)
			})
		}
	}

	var full strings.Builder
	buffer := ""
	next := 0
	var streamErr error

	for token := range tokens {
		if token.Err != nil {
			streamErr = token.Err
			break
		}
		if token.Text != "" {
			full.WriteString(token.Text)
			buffer += token.Text

			var sentences []string
			sentences, buffer = segmenter.Split(buffer)
			for _, sentence := range sentences {
				trimmed := strings.TrimSpace(sentence)
				if trimmed == "" {
					continue
				}
				wg.Add(1)
				go synthesize(next, trimmed)
				next++
			}
		}
		if token.Done {
			break
		}
	}

	if streamErr != nil {
		cancel()
		wg.Wait()
		firstOnce.Do(func() { close(run.firstAudio) })
		run.err = fmt.Errorf("%w: %v", ErrStreamFailed, streamErr)
		return
	}

	if tail := strings.TrimSpace(buffer); tail != "" {
		wg.Add(1)
		go synthesize(next, tail)
		next++
	}

	wg.Wait()
	firstOnce.Do(func() { close(run.firstAudio) })

	if next > 0 && failed == next {
		run.err = ErrAllSynthesisFailed
		return
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })

	var total time.Duration
	for _, c := range chunks {
		total += c.Duration
	}

	run.result = &Result{
		Text:     full.String(),
		Chunks:   chunks,
		Failed:   failed,
		Duration: total,
	}
}
