package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-journal-be/pkg/llm"
	"voice-journal-be/pkg/tts"
)

// fakeLLM replays a scripted token sequence.
type fakeLLM struct {
	tokens  []llm.Token
	openErr error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.Token, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	out := make(chan llm.Token, len(f.tokens))
	for _, t := range f.tokens {
		out <- t
	}
	close(out)
	return out, nil
}

// fakeTTS synthesizes instantly; sentences listed in fail error out. An
// optional delay keyed by sentence lets tests force out-of-order completion.
type fakeTTS struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	delay map[string]time.Duration
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string, voice string) (*tts.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if d, ok := f.delay[text]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[text] {
		return nil, errors.New("synth boom")
	}
	return &tts.Result{
		AudioRef:    fmt.Sprintf("https://cdn.test/%d.mp3", len(text)),
		ContentType: "audio/mpeg",
		Duration:    time.Second,
	}, nil
}

func tokensFor(texts ...string) []llm.Token {
	out := make([]llm.Token, 0, len(texts)+1)
	for _, t := range texts {
		out = append(out, llm.Token{Text: t})
	}
	return append(out, llm.Token{Done: true})
}

func TestOrchestrator_ChunksSortedBySentenceOrder(t *testing.T) {
	fake := &fakeTTS{
		// First sentence finishes last; chunk order must still follow the reply.
		delay: map[string]time.Duration{"One.": 50 * time.Millisecond},
	}
	orch := New(&fakeLLM{tokens: tokensFor("One. Two. ", "Three")}, fake, "ava")

	run := orch.Start(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	result, err := run.Wait()

	require.NoError(t, err)
	assert.Equal(t, "One. Two. Three", result.Text)
	require.Len(t, result.Chunks, 3)
	assert.Equal(t, "One.", result.Chunks[0].Text)
	assert.Equal(t, "Two.", result.Chunks[1].Text)
	assert.Equal(t, "Three", result.Chunks[2].Text)
	assert.Equal(t, 3*time.Second, result.Duration)
	assert.Zero(t, result.Failed)
}

func TestOrchestrator_FirstAudioIsOpeningSentence(t *testing.T) {
	fake := &fakeTTS{}
	orch := New(&fakeLLM{tokens: tokensFor("Hello there. And more")}, fake, "ava")

	run := orch.Start(context.Background(), nil)

	first, ok := <-run.FirstAudio()
	require.True(t, ok)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "Hello there.", first.Text)

	// Channel is closed after the single delivery.
	_, ok = <-run.FirstAudio()
	assert.False(t, ok)

	_, err := run.Wait()
	require.NoError(t, err)
}

func TestOrchestrator_FirstAudioClosedWhenOpeningSentenceFails(t *testing.T) {
	fake := &fakeTTS{fail: map[string]bool{"Bad start.": true}}
	orch := New(&fakeLLM{tokens: tokensFor("Bad start. Good ending")}, fake, "ava")

	run := orch.Start(context.Background(), nil)

	first, ok := <-run.FirstAudio()
	assert.Nil(t, first)
	assert.False(t, ok)

	result, err := run.Wait()
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "Good ending", result.Chunks[0].Text)
	assert.Equal(t, 1, result.Failed)
}

func TestOrchestrator_PartialSynthesisFailureDegrades(t *testing.T) {
	fake := &fakeTTS{fail: map[string]bool{"Two.": true}}
	orch := New(&fakeLLM{tokens: tokensFor("One. Two. Three.")}, fake, "ava")

	result, err := orch.Start(context.Background(), nil).Wait()

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "One.", result.Chunks[0].Text)
	assert.Equal(t, "Three.", result.Chunks[1].Text)
	// The full transcript keeps the failed sentence.
	assert.Equal(t, "One. Two. Three.", result.Text)
}

func TestOrchestrator_AllSynthesisFailed(t *testing.T) {
	fake := &fakeTTS{fail: map[string]bool{"One.": true, "Two.": true}}
	orch := New(&fakeLLM{tokens: tokensFor("One. Two.")}, fake, "ava")

	result, err := orch.Start(context.Background(), nil).Wait()

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrAllSynthesisFailed)
}

func TestOrchestrator_StreamOpenError(t *testing.T) {
	orch := New(&fakeLLM{openErr: errors.New("connect refused")}, &fakeTTS{}, "ava")

	run := orch.Start(context.Background(), nil)

	_, ok := <-run.FirstAudio()
	assert.False(t, ok)

	result, err := run.Wait()
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrStreamFailed)
}

func TestOrchestrator_MidStreamErrorAborts(t *testing.T) {
	fake := &fakeTTS{}
	orch := New(&fakeLLM{tokens: []llm.Token{
		{Text: "Fine so far. "},
		{Err: errors.New("upstream reset")},
	}}, fake, "ava")

	result, err := orch.Start(context.Background(), nil).Wait()

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrStreamFailed)
}

func TestOrchestrator_EmptyReply(t *testing.T) {
	orch := New(&fakeLLM{tokens: []llm.Token{{Done: true}}}, &fakeTTS{}, "ava")

	run := orch.Start(context.Background(), nil)

	_, ok := <-run.FirstAudio()
	assert.False(t, ok)

	result, err := run.Wait()
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.Empty(t, result.Text)
}

func TestOrchestrator_TailWithoutTerminatorSynthesized(t *testing.T) {
	fake := &fakeTTS{}
	orch := New(&fakeLLM{tokens: tokensFor("A full sentence. and a trailing fragment")}, fake, "ava")

	result, err := orch.Start(context.Background(), nil).Wait()

	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "and a trailing fragment", result.Chunks[1].Text)

	texts := make([]string, 0, len(fake.calls))
	fake.mu.Lock()
	texts = append(texts, fake.calls...)
	fake.mu.Unlock()
	assert.True(t, strings.Contains(strings.Join(texts, "|"), "A full sentence."))
}
