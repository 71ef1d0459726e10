package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/voterstack/gateway/internal/flags"
	"github.com/voterstack/gateway/internal/tenant"
	"github.com/voterstack/gateway/internal/usage"
)

type InvalidateCacheInput struct {
	Body struct {
		Slug string `json:"slug,omitempty" maxLength:"63" doc:"Tenant slug to invalidate; empty clears the whole cache"`
	}
}

type InvalidateCacheOutput struct {
	Body struct {
		Invalidated string `json:"invalidated" doc:"Slug that was invalidated, or 'all'"`
	}
}

type PreloadCacheInput struct {
	Body struct {
		Slugs []string `json:"slugs" minItems:"1" maxItems:"100" doc:"Tenant slugs to warm"`
	}
}

type PreloadCacheOutput struct {
	Body struct {
		Requested int `json:"requested"`
	}
}

type EvaluateFlagInput struct {
	Key      string `path:"key" maxLength:"128" doc:"Flag key"`
	UserID   string `query:"user_id" doc:"User the flag is evaluated for"`
	TenantID string `query:"tenant_id" doc:"Tenant the flag is evaluated for"`
	Role     string `query:"role" doc:"Role the flag is evaluated for"`
}

type EvaluateFlagOutput struct {
	Body flags.Evaluation
}

type TenantUsageInput struct {
	Slug string `path:"slug" maxLength:"63" doc:"Tenant slug"`
}

type TenantUsageOutput struct {
	Body struct {
		TenantID string `json:"tenant_id"`
		APICalls int64  `json:"api_calls"`
	}
}

func registerAdminRoutes(api huma.API, configs *tenant.ConfigStore, meter *usage.Meter, evaluator *flags.Evaluator) {
	huma.Register(api, huma.Operation{
		OperationID: "invalidate-cache",
		Method:      http.MethodPost,
		Path:        "/cache/invalidate",
		Summary:     "Invalidate cached tenant configuration",
		Tags:        []string{"Cache"},
	}, func(_ context.Context, input *InvalidateCacheInput) (*InvalidateCacheOutput, error) {
		configs.Invalidate(input.Body.Slug)

		out := &InvalidateCacheOutput{}
		out.Body.Invalidated = input.Body.Slug
		if input.Body.Slug == "" {
			out.Body.Invalidated = "all"
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "preload-cache",
		Method:      http.MethodPost,
		Path:        "/cache/preload",
		Summary:     "Warm the tenant configuration cache",
		Tags:        []string{"Cache"},
	}, func(ctx context.Context, input *PreloadCacheInput) (*PreloadCacheOutput, error) {
		configs.Preload(ctx, input.Body.Slugs)

		out := &PreloadCacheOutput{}
		out.Body.Requested = len(input.Body.Slugs)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-flag",
		Method:      http.MethodGet,
		Path:        "/flags/{key}",
		Summary:     "Evaluate a feature flag for a context",
		Tags:        []string{"Flags"},
	}, func(_ context.Context, input *EvaluateFlagInput) (*EvaluateFlagOutput, error) {
		eval := evaluator.Evaluate(input.Key, flags.Context{
			UserID:   input.UserID,
			TenantID: input.TenantID,
			Role:     input.Role,
		})
		return &EvaluateFlagOutput{Body: eval}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tenant-usage",
		Method:      http.MethodGet,
		Path:        "/usage/{slug}",
		Summary:     "Read today's API call counter for a tenant",
		Tags:        []string{"Usage"},
	}, func(ctx context.Context, input *TenantUsageInput) (*TenantUsageOutput, error) {
		calls, err := meter.Today(ctx, input.Slug)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read usage counter", err)
		}

		out := &TenantUsageOutput{}
		out.Body.TenantID = input.Slug
		out.Body.APICalls = calls
		return out, nil
	})
}
