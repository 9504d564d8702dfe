// Package integration holds the cross-service tests: an in-process
// two-service flow over httptest, and container-backed store tests gated by
// CHECKOUT_INTEGRATION=1.
package integration

import (
	"context"

	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

type Env struct {
	OrdersPG   *tcpostgres.PostgresContainer
	PaymentsPG *tcpostgres.PostgresContainer
	Kafka      *tckafka.KafkaContainer

	OrdersURL   string
	PaymentsURL string
	KafkaAddrs  []string
}

// Setup starts one postgres per store, mirroring the deployment: the order
// and payment services never share a database.
func Setup(ctx context.Context) (*Env, error) {
	env := &Env{}

	ordersPG, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orders"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, err
	}
	env.OrdersPG = ordersPG
	if env.OrdersURL, err = ordersPG.ConnectionString(ctx, "sslmode=disable"); err != nil {
		env.Teardown(ctx)
		return nil, err
	}

	paymentsPG, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("payments"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		env.Teardown(ctx)
		return nil, err
	}
	env.PaymentsPG = paymentsPG
	if env.PaymentsURL, err = paymentsPG.ConnectionString(ctx, "sslmode=disable"); err != nil {
		env.Teardown(ctx)
		return nil, err
	}

	kafkaC, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("checkout-test"),
	)
	if err != nil {
		env.Teardown(ctx)
		return nil, err
	}
	env.Kafka = kafkaC
	if env.KafkaAddrs, err = kafkaC.Brokers(ctx); err != nil {
		env.Teardown(ctx)
		return nil, err
	}

	return env, nil
}

func (e *Env) Teardown(ctx context.Context) {
	if e.Kafka != nil {
		_ = e.Kafka.Terminate(ctx)
	}
	if e.PaymentsPG != nil {
		_ = e.PaymentsPG.Terminate(ctx)
	}
	if e.OrdersPG != nil {
		_ = e.OrdersPG.Terminate(ctx)
	}
}
