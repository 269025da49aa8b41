package service

import (
	"context"

	"mushtrack/internal/models"
)

// MsgPhotoHealthy is the simulated checker's verdict.
const MsgPhotoHealthy = "✅ Healthy growth detected (simulated)."

// PhotoChecker inspects a growth photo and returns a verdict for the user.
type PhotoChecker interface {
	Check(ctx context.Context, photo *models.Photo) (string, error)
}

// SimulatedPhotoChecker approves every photo.
type SimulatedPhotoChecker struct{}

func (SimulatedPhotoChecker) Check(context.Context, *models.Photo) (string, error) {
	return MsgPhotoHealthy, nil
}
