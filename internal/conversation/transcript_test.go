package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTranscript(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTranscript(3, time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.Append(ctx, "1", schema.UserMessage(fmt.Sprintf("m%d", i))))
	}
	require.NoError(t, tr.Append(ctx, "2", schema.AssistantMessage("other", nil)))

	msgs, err := tr.Load(ctx, "1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m2", msgs[0].Content)
	assert.Equal(t, "m4", msgs[2].Content)

	require.NoError(t, tr.Clear(ctx, "1"))
	msgs, err = tr.Load(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = tr.Load(ctx, "2")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestFormat(t *testing.T) {
	out := Format([]*schema.Message{
		schema.UserMessage("Silver Needle"),
		schema.AssistantMessage("Year of harvest?", nil),
	})
	assert.Equal(t, "<conversation>\nUserMessage(Silver Needle)\nAssistantMessage(Year of harvest?)\n</conversation>", out)
}
