package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), contextSubjectKey, "42")
	userID, err := userIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)

	_, err = userIDFromContext(context.Background())
	assert.Error(t, err)

	for _, subject := range []string{"", "abc", "0", "-5"} {
		ctx := context.WithValue(context.Background(), contextSubjectKey, subject)
		_, err := userIDFromContext(ctx)
		assert.Error(t, err, "subject %q", subject)
	}
}
