package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pubfeed/apiserver/internal/mq"
	"github.com/pubfeed/apiserver/internal/services"
	"github.com/pubfeed/apiserver/internal/storage"
	"github.com/pubfeed/apiserver/types"
	"github.com/sirupsen/logrus"
)

// CleanupWorker consumes image cleanup events and removes the referenced
// assets from object storage. Cleanup is best-effort: a failed delete is
// logged and acknowledged rather than retried forever against a missing
// or already-removed object.
type CleanupWorker struct {
	queue   *mq.MQ
	storage *storage.Storage
	log     *logrus.Logger
}

func NewCleanupWorker(queue *mq.MQ, store *storage.Storage, log *logrus.Logger) *CleanupWorker {
	return &CleanupWorker{
		queue:   queue,
		storage: store,
		log:     log,
	}
}

// Run blocks consuming cleanup events until the context is cancelled.
func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.WithField("channel", services.ImageCleanupChannel).Info("cleanup worker started")
	return w.queue.Subscribe(ctx, services.ImageCleanupChannel, w.handle)
}

func (w *CleanupWorker) handle(ctx context.Context, msg mq.Message) error {
	var event types.ImageCleanupEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// Malformed events are dropped; nacking would redeliver them forever.
		w.log.WithError(err).WithField("message", msg.ID).Warn("drop malformed cleanup event")
		return nil
	}
	if event.ImageKey == "" {
		return nil
	}

	if err := w.storage.Delete(ctx, event.ImageKey); err != nil {
		w.log.WithError(err).WithFields(logrus.Fields{
			"post":  event.PostID,
			"image": event.ImageKey,
		}).Warn(fmt.Sprintf("delete image from bucket %s", w.storage.Bucket()))
		return nil
	}

	w.log.WithFields(logrus.Fields{"post": event.PostID, "image": event.ImageKey}).Info("image removed")
	return nil
}
