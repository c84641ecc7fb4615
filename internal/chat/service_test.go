package chat

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"threadlens/internal/llm"
	"threadlens/internal/thread"
)

func chatTree() *thread.RawNode {
	return &thread.RawNode{ID: "100", Author: "op", Children: []*thread.RawNode{
		{ID: "101", Author: "ann", Children: []*thread.RawNode{
			{ID: "102", Author: "ben", Children: []*thread.RawNode{
				{ID: "104", Author: "dan"},
			}},
			{ID: "103", Author: "cam"},
		}},
	}}
}

func chatRanks() []thread.RankEntry {
	return []thread.RankEntry{
		{ID: "101", Rank: 0, Text: "first"},
		{ID: "102", Rank: 1, Text: "second"},
		{ID: "103", Rank: 2, Text: "third"},
		{ID: "104", Rank: 3, Text: "fourth"},
	}
}

type staticTrees struct{ root *thread.RawNode }

func (s staticTrees) Thread(context.Context, string) (*thread.RawNode, error) {
	return s.root, nil
}

func newTestService(t *testing.T, fake *llm.FakeClient) *Service {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "transcripts.json"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(ServiceConfig{
		Trees:   staticTrees{root: chatTree()},
		Clients: func(context.Context, string, string) (llm.Client, error) { return fake, nil },
		Store:   store,
		Log:     zerolog.Nop(),
	})
}

func TestSendMessageStartsConversation(t *testing.T) {
	fake := llm.NewFakeClient("The root point is [1].")
	svc := newTestService(t, fake)

	res, err := svc.SendMessage(context.Background(), Request{
		PostID: "100", Message: "what is the main argument?", Ranks: chatRanks(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ConversationID)
	require.Equal(t, 2, res.Turns)

	// Path reference rewritten through the whole-thread index.
	require.Contains(t, res.Reply, `data-comment-id="101">[1]</a>`)

	// Context payload reached the model through the system prompt.
	require.Len(t, fake.Systems, 1)
	require.Contains(t, fake.Systems[0], "[1] (score: 1000)")
	require.Contains(t, fake.Systems[0], "ann: first")
}

func TestSendMessageGrowsHistory(t *testing.T) {
	fake := llm.NewFakeClient("")
	svc := newTestService(t, fake)
	ctx := context.Background()

	first, err := svc.SendMessage(ctx, Request{
		PostID: "100", Message: "hello", Ranks: chatRanks(),
	})
	require.NoError(t, err)

	second, err := svc.SendMessage(ctx, Request{
		PostID: "100", Message: "and then?", Ranks: chatRanks(),
	})
	require.NoError(t, err)

	require.Equal(t, first.ConversationID, second.ConversationID)
	require.Equal(t, 4, second.Turns)

	// Second call saw the full prior exchange plus the new message.
	require.Len(t, fake.Inputs, 2)
	require.Len(t, fake.Inputs[1], 3)
	require.Equal(t, "hello", fake.Inputs[1][0].Content)
	require.Equal(t, "and then?", fake.Inputs[1][2].Content)
}

func TestSendMessageConcurrentSameAnchor(t *testing.T) {
	fake := llm.NewFakeClient("")
	svc := newTestService(t, fake)
	ctx := context.Background()

	seed, err := svc.SendMessage(ctx, Request{
		PostID: "100", Message: "seed", Ranks: chatRanks(),
	})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendMessage(ctx, Request{
				PostID: "100", Message: "more", Ranks: chatRanks(),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Every turn lands: two messages per turn, none lost to overlap.
	tr, ok, err := svc.store.Get(ctx, TranscriptKey("100", "", thread.ModeSubtree))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, tr.Messages, 2*(workers+1))
	require.Equal(t, seed.ConversationID, tr.ConversationID)
}

func TestSendMessageSubtreeAnchor(t *testing.T) {
	fake := llm.NewFakeClient("see [1] and [1.1]")
	svc := newTestService(t, fake)

	res, err := svc.SendMessage(context.Background(), Request{
		PostID: "100", CommentID: "102", Mode: "subtree",
		Message: "summarize this branch", Ranks: chatRanks(),
	})
	require.NoError(t, err)
	require.Contains(t, res.Reply, `data-comment-id="102">[1]</a>`)
	require.Contains(t, res.Reply, `data-comment-id="104">[1.1]</a>`)
}

func TestSendMessageSeparateAnchorsSeparateConversations(t *testing.T) {
	svc := newTestService(t, llm.NewFakeClient(""))
	ctx := context.Background()

	whole, err := svc.SendMessage(ctx, Request{
		PostID: "100", Message: "hi", Ranks: chatRanks(),
	})
	require.NoError(t, err)

	anchored, err := svc.SendMessage(ctx, Request{
		PostID: "100", CommentID: "102", Message: "hi", Ranks: chatRanks(),
	})
	require.NoError(t, err)

	require.NotEqual(t, whole.ConversationID, anchored.ConversationID)
	require.Equal(t, 2, anchored.Turns)
}

func TestSendMessageStream(t *testing.T) {
	fake := llm.NewFakeClient("streamed reply about [1]")
	svc := newTestService(t, fake)

	var chunks []string
	res, err := svc.SendMessageStream(context.Background(), Request{
		PostID: "100", Message: "go", Ranks: chatRanks(),
	}, func(c string) { chunks = append(chunks, c) })
	require.NoError(t, err)

	require.Equal(t, "streamed reply about [1]", strings.Join(chunks, ""))
	require.Contains(t, res.Reply, `data-comment-id="101">[1]</a>`)
}

func TestSendMessageMissingAnchor(t *testing.T) {
	svc := newTestService(t, llm.NewFakeClient(""))
	_, err := svc.SendMessage(context.Background(), Request{
		PostID: "100", CommentID: "999", Message: "hi", Ranks: chatRanks(),
	})
	require.ErrorIs(t, err, ErrNoContext)
}

func TestSendMessageValidation(t *testing.T) {
	svc := newTestService(t, llm.NewFakeClient(""))
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, Request{Message: "hi"})
	require.Error(t, err)

	_, err = svc.SendMessage(ctx, Request{PostID: "100"})
	require.Error(t, err)
}
