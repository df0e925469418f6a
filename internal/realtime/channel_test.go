package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
)

type triggerCall struct {
	projectID uint
	prompt    string
}

type recordingTrigger struct {
	calls []triggerCall
	// roomSeen is how many messages the room had received when the trigger fired.
	roomSeen []int
	peer     *recorder
}

func (r *recordingTrigger) HandleTrigger(_ context.Context, projectID uint, prompt string, _ uint) {
	r.calls = append(r.calls, triggerCall{projectID, prompt})
	if r.peer != nil {
		r.roomSeen = append(r.roomSeen, len(r.peer.received()))
	}
}

type failingStore struct{}

func (failingStore) Create(context.Context, *models.ChatMessage) error {
	return errors.New("disk full")
}

func TestChannel_SendChatMessage(t *testing.T) {
	env := newTestEnv(t)
	alice := &recorder{id: "alice-session"}
	bob := &recorder{id: "bob-session"}
	env.hub.Join(env.project.ID, alice)
	env.hub.Join(env.project.ID, bob)

	trigger := &recordingTrigger{peer: bob}
	ch := NewChannel(env.hub, env.chat, trigger, "@ai", env.metrics)

	msg, err := ch.SendChatMessage(context.Background(), "hello team", Identity{UserID: env.alice.ID, Email: env.alice.Email}, env.project.ID, alice.ID())
	require.NoError(t, err)

	assert.Equal(t, models.SenderHuman, msg.SenderKind)
	assert.Equal(t, "alice@x.com", msg.SenderEmail)
	assert.Empty(t, alice.received(), "sender is excluded from the broadcast")
	require.Len(t, bob.received(), 1)
	assert.Equal(t, msg.ID, bob.received()[0].Message.ID)
	assert.Empty(t, trigger.calls)
	assert.Len(t, env.history(t), 1)
}

func TestChannel_TriggerAfterBroadcast(t *testing.T) {
	env := newTestEnv(t)
	bob := &recorder{id: "bob-session"}
	env.hub.Join(env.project.ID, bob)

	trigger := &recordingTrigger{peer: bob}
	ch := NewChannel(env.hub, env.chat, trigger, "@ai", env.metrics)

	_, err := ch.SendChatMessage(context.Background(), "@ai build a counter @ai", Identity{UserID: env.alice.ID, Email: env.alice.Email}, env.project.ID, "alice-session")
	require.NoError(t, err)

	require.Len(t, trigger.calls, 1)
	assert.Equal(t, "build a counter", trigger.calls[0].prompt)
	assert.Equal(t, []int{1}, trigger.roomSeen, "the room has the message before the trigger fires")
	assert.Equal(t, "@ai build a counter @ai", env.history(t)[0].Text, "persisted text keeps the token")
}

func TestChannel_TriggerIsCaseSensitive(t *testing.T) {
	env := newTestEnv(t)
	trigger := &recordingTrigger{}
	ch := NewChannel(env.hub, env.chat, trigger, "@ai", env.metrics)

	_, err := ch.SendChatMessage(context.Background(), "@AI are you there", Identity{UserID: env.alice.ID, Email: env.alice.Email}, env.project.ID, "s")
	require.NoError(t, err)
	assert.Empty(t, trigger.calls)
}

func TestChannel_PersistFailureSkipsBroadcast(t *testing.T) {
	env := newTestEnv(t)
	bob := &recorder{id: "bob-session"}
	env.hub.Join(env.project.ID, bob)
	trigger := &recordingTrigger{}
	ch := NewChannel(env.hub, failingStore{}, trigger, "@ai", env.metrics)

	_, err := ch.SendChatMessage(context.Background(), "@ai hi", Identity{UserID: env.alice.ID, Email: env.alice.Email}, env.project.ID, "alice-session")
	assert.Error(t, err)
	assert.Empty(t, bob.received())
	assert.Empty(t, trigger.calls)
}

func TestBridge_ProcessBroadcastsToEveryone(t *testing.T) {
	env := newTestEnv(t)
	alice := &recorder{id: "alice-session"}
	bob := &recorder{id: "bob-session"}
	env.hub.Join(env.project.ID, alice)
	env.hub.Join(env.project.ID, bob)

	gen := &fakeGenerator{reply: "here you go"}
	bridge := NewBridge(services.NewSyncQueue(), gen, env.chat, env.hub, env.metrics)

	err := bridge.Process(context.Background(), &services.GenerationTask{ProjectID: env.project.ID, Prompt: "build"})
	require.NoError(t, err)

	require.Len(t, alice.received(), 1, "the requester receives the reply")
	require.Len(t, bob.received(), 1)
	reply := alice.received()[0].Message
	assert.Equal(t, models.SenderAgent, reply.SenderKind)
	assert.Equal(t, models.AgentSenderEmail, reply.SenderEmail)
	assert.Equal(t, "here you go", reply.Text)
}

func TestBridge_FailureBecomesApology(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	bridge := NewBridge(services.NewSyncQueue(), gen, env.chat, env.hub, env.metrics)

	require.NoError(t, bridge.Process(context.Background(), &services.GenerationTask{ProjectID: env.project.ID, Prompt: "build"}))

	history := env.history(t)
	require.Len(t, history, 1)
	assert.Equal(t, services.FailureReply, history[0].Text)
	assert.True(t, history[0].IsAgent())
}

func TestBridge_HandleTriggerRunsThroughQueue(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{reply: "done"}
	queue := services.NewSyncQueue()
	bridge := NewBridge(queue, gen, env.chat, env.hub, env.metrics)
	queue.SetProcessor(bridge.Process)

	ctx, cancel := context.WithCancel(context.Background())
	bridge.HandleTrigger(ctx, env.project.ID, "make it blue", env.alice.ID)
	cancel()
	require.NoError(t, queue.Close())

	assert.Equal(t, []string{"make it blue"}, gen.seen())
	history := env.history(t)
	require.Len(t, history, 1)
	assert.Equal(t, "done", history[0].Text)
}
