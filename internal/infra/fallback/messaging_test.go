package fallback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

func TestMessaging_ListsSynthesizedConversation(t *testing.T) {
	store := NewStore(anchor, "")
	client := NewMessaging(store)

	conv := store.Conversation("appt-1")
	messages, err := client.ListMessages(context.Background(), conv.ID)
	require.NoError(t, err)

	require.Len(t, messages, DemoMessageCount)
	assert.Equal(t, store.Messages(&domain.Conversation{ID: conv.ID}, DemoMessageCount), messages)
	for _, m := range messages {
		assert.Nil(t, m.ReadAt)
	}
}

func TestMessaging_MarkReadIsKept(t *testing.T) {
	store := NewStore(anchor, "")
	client := NewMessaging(store)
	readAt := anchor.Add(time.Minute)
	client.now = func() time.Time { return readAt }

	conv := store.Conversation("appt-1")
	messages, err := client.ListMessages(context.Background(), conv.ID)
	require.NoError(t, err)

	require.NoError(t, client.MarkRead(context.Background(), conv.ID, "reader", []string{messages[0].ID}))

	// повторная отметка не сдвигает время
	client.now = func() time.Time { return readAt.Add(time.Hour) }
	require.NoError(t, client.MarkRead(context.Background(), conv.ID, "reader", []string{messages[0].ID}))

	messages, err = client.ListMessages(context.Background(), conv.ID)
	require.NoError(t, err)

	require.NotNil(t, messages[0].ReadAt)
	assert.True(t, readAt.Equal(*messages[0].ReadAt))
	assert.Nil(t, messages[1].ReadAt)
}

func TestMessaging_OpenedAppointmentParticipantsWrite(t *testing.T) {
	store := NewStore(anchor, "")
	client := NewMessaging(store)

	conv := "conv-live-1"
	appt := &domain.Appointment{
		ID:              "appt-1",
		ClientID:        "alice",
		ProfessionalID:  "bob",
		ConversationRef: &conv,
	}
	client.Open(appt)

	messages, err := client.ListMessages(context.Background(), conv)
	require.NoError(t, err)
	require.Len(t, messages, DemoMessageCount)

	var fromAlice, fromBob int
	for _, m := range messages {
		switch m.SenderID {
		case "alice":
			fromAlice++
		case "bob":
			fromBob++
		}
	}
	assert.Equal(t, DemoMessageCount/2, fromAlice)
	assert.Equal(t, DemoMessageCount/2, fromBob)
}

func TestMessaging_SynthesizedAppointmentHasOwnMessages(t *testing.T) {
	store := NewStore(anchor, "")
	client := NewMessaging(store)

	appt := store.Appointment("appt-1")
	client.Open(appt)

	messages, err := client.ListMessages(context.Background(), *appt.ConversationRef)
	require.NoError(t, err)

	outgoing := 0
	for _, m := range messages {
		if m.SenderID == appt.ClientID {
			outgoing++
		}
	}
	assert.Equal(t, DemoMessageCount/2, outgoing)
}
