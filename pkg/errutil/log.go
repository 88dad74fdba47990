// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

// Package errutil holds helpers for oops errors shared by logging and tests.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops code carried by err, or "" when there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok || oopsErr.Code() == nil {
		return ""
	}
	return fmt.Sprint(oopsErr.Code())
}

// LogError logs err at error level. For oops errors the code and context are
// logged as separate attributes.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	attrs := []slog.Attr{slog.String("error", err.Error())}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := Code(err); code != "" {
			attrs = append(attrs, slog.String("code", code))
		}
		if c := oopsErr.Context(); len(c) > 0 {
			attrs = append(attrs, slog.Any("context", c))
		}
	}
	logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}
