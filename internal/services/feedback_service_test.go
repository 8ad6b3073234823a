package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAddFeedbackValidatesRating(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewFeedbackService(db)
	require.NoError(t, err)

	feedback, err := svc.AddFeedback(context.Background(), "user@x.com", 4, 5, "works well")
	require.NoError(t, err)
	require.Equal(t, 4.0, feedback.Rating)
	require.Equal(t, 5.0, feedback.Scale)

	_, err = svc.AddFeedback(context.Background(), "user@x.com", 7, 5, "")
	require.Error(t, err)

	_, err = svc.AddFeedback(context.Background(), "", 3, 5, "")
	require.Error(t, err)
}

func TestUIConfigRoundTrip(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewFeedbackService(db)
	require.NoError(t, err)

	// Unknown users start with an empty object.
	config, err := svc.GetUIConfig(context.Background(), "user@x.com")
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(config))

	require.NoError(t, svc.SaveUIConfig(context.Background(), "user@x.com",
		datatypes.JSON([]byte(`{"theme":"dark"}`))))

	config, err = svc.GetUIConfig(context.Background(), "user@x.com")
	require.NoError(t, err)
	require.JSONEq(t, `{"theme":"dark"}`, string(config))

	// Saving again overwrites.
	require.NoError(t, svc.SaveUIConfig(context.Background(), "user@x.com",
		datatypes.JSON([]byte(`{"theme":"light","stepper":true}`))))

	config, err = svc.GetUIConfig(context.Background(), "user@x.com")
	require.NoError(t, err)
	require.JSONEq(t, `{"theme":"light","stepper":true}`, string(config))
}
