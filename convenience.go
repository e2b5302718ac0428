package pgmerge

import "context"

// GeneratePlan is a convenience function to plan the migration of a database
// to the models of provider.
func GeneratePlan(ctx context.Context, dbConfig DatabaseConfig, provider Provider) (*Plan, error) {
	return NewClient(dbConfig, provider).Plan(ctx)
}

// ApplyModels is a convenience function to plan and apply in one operation.
func ApplyModels(ctx context.Context, dbConfig DatabaseConfig, provider Provider, autoApprove bool) error {
	return NewClient(dbConfig, provider).Apply(ctx, ApplyOptions{
		AutoApprove: autoApprove,
	})
}

// QuietApplyModels is like ApplyModels but suppresses all output except errors.
func QuietApplyModels(ctx context.Context, dbConfig DatabaseConfig, provider Provider) error {
	return NewClient(dbConfig, provider).Apply(ctx, ApplyOptions{
		AutoApprove: true,
		Quiet:       true,
	})
}

// ApplySavedPlan applies the migration only if the database and models still
// match the plan saved at planFile.
func ApplySavedPlan(ctx context.Context, dbConfig DatabaseConfig, provider Provider, planFile string, autoApprove bool) error {
	return NewClient(dbConfig, provider).Apply(ctx, ApplyOptions{
		PlanFile:    planFile,
		AutoApprove: autoApprove,
	})
}
