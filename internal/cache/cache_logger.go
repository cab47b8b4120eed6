package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and logs failures instead of
// propagating them. A failed invalidation must never fail the write that
// triggered it; the entry simply expires on its TTL.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, patterns ...string) {
	for _, pattern := range patterns {
		if err := helper.InvalidatePattern(ctx, pattern); err != nil {
			slog.ErrorContext(ctx, "failed to invalidate cache pattern",
				"error", err,
				"pattern", pattern)
		}
	}
}

// SafeDelete deletes keys and logs failures instead of propagating them.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateExamCache drops an exam's cached payload, the exam listings, any
// cached question pages under it, and its derived stats.
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID uint) {
	SafeDelete(ctx, cm.Catalog, fmt.Sprintf("exam:id:%d", examID))
	SafeInvalidatePattern(ctx, cm.Catalog, "exam:list:*")
	SafeInvalidatePattern(ctx, cm.Question, fmt.Sprintf("exam:%d:*", examID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("exam:%d:*", examID))
}

// InvalidateQuestionCache drops a question's cached payload plus the question
// pages and stats of the exam it belongs to.
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID, examID uint) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("id:%d", questionID))
	SafeInvalidatePattern(ctx, cm.Question,
		fmt.Sprintf("exam:%d:*", examID),
		"list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("question:%d:*", questionID))
}
