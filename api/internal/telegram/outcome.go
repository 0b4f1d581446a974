package telegram

import (
	"context"

	"genecross/api/internal/metrics"
	"genecross/api/internal/store"
	"genecross/api/internal/submit"
	"genecross/api/internal/util"
)

// recordOutcome stores every finished submission of chatID in History.
func (r *Router) recordOutcome(chatID int64) func(context.Context, submit.Outcome) {
	return func(ctx context.Context, o submit.Outcome) {
		if r.History == nil {
			return
		}
		hash, _, err := util.JSONHash(o.Request)
		if err != nil {
			r.Log.Warn().Err(err).Msg("hash request")
		}
		sub := store.Submission{
			CreatedAt:   o.Started,
			ChatID:      chatID,
			Mode:        string(o.Mode),
			RequestHash: hash,
			Request:     o.Request,
			Outcome:     metrics.OutcomeSuccess,
			ResultCount: len(o.Results),
			Results:     o.Results,
			Elapsed:     o.Elapsed,
		}
		if o.Err != nil {
			sub.Outcome = metrics.OutcomeFailed
			sub.ErrorText = o.Message
		}
		if len(o.Results) > 0 {
			sub.BestSum = o.Results[0].Sum
		}
		// the request context may already be gone when the bot shuts down
		id, err := r.History.Record(context.WithoutCancel(ctx), sub)
		if err != nil {
			r.Log.Error().Err(err).Int64("chat_id", chatID).Msg("record submission")
			return
		}
		r.Log.Debug().Int64("chat_id", chatID).Int64("submission_id", id).Str("request_hash", hash).Msg("submission recorded")
	}
}
