package executor

import "github.com/centraunit/beans"

const (
	// ScheduledName qualifies the default scheduled executor beans.
	ScheduledName = "scheduled"

	// ScheduledProperty configures a scheduled executor explicitly. While it
	// is set the default scheduled configuration is not eligible.
	ScheduledProperty = "server.executors.scheduled"

	// ScheduledBeanName is the diagnostic name of the default scheduled
	// executor configuration bean.
	ScheduledBeanName = "scheduled-executor-configuration"
)

// ScheduledServiceConfig produces the default scheduled executor
// configuration.
type ScheduledServiceConfig struct{}

// Configuration returns the default scheduled executor configuration.
func (*ScheduledServiceConfig) Configuration() *Configuration {
	return Of(Scheduled).Named(ScheduledName)
}

// Definitions returns the bean definitions of the default scheduled executor:
// the ScheduledServiceConfig owner guarded by the absence of
// ScheduledProperty, the configuration it produces and the Scheduler built
// from that configuration.
func Definitions() ([]beans.Reference, error) {
	owner, err := beans.Provide(
		func() *ScheduledServiceConfig { return &ScheduledServiceConfig{} },
		beans.Requires(beans.MissingProperty(ScheduledProperty)),
		beans.WithName("scheduled-executor-service-config"),
	)
	if err != nil {
		return nil, err
	}

	cfg, err := beans.Factory(owner, (*ScheduledServiceConfig).Configuration,
		beans.Named(ScheduledName),
		beans.WithName(ScheduledBeanName),
	)
	if err != nil {
		return nil, err
	}

	scheduler, err := beans.Provide(NewScheduler,
		beans.Named(ScheduledName),
		beans.Qualify(0, ScheduledName),
		beans.Requires(beans.RequiresBeanOf[*Configuration](ScheduledName)),
	)
	if err != nil {
		return nil, err
	}

	return []beans.Reference{owner, cfg, scheduler}, nil
}
