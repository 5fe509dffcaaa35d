package logger

import (
	"context"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

var (
	cyclesRun      int64
	listingsRead   int64
	floorFetches   int64
	opportunities  int64
	buyAttempts    int64
	buySuccesses   int64
	auditWrites    int64
	errorsMarket   int64
	errorsExecutor int64
	warnsMarket    int64
	warnsExecutor  int64
)

func recordWarn(component string) {
	if strings.Contains(component, "market") || strings.Contains(component, "analytics") {
		atomic.AddInt64(&warnsMarket, 1)
	} else if strings.Contains(component, "executor") {
		atomic.AddInt64(&warnsExecutor, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "market") || strings.Contains(component, "analytics") {
		atomic.AddInt64(&errorsMarket, 1)
	} else if strings.Contains(component, "executor") {
		atomic.AddInt64(&errorsExecutor, 1)
	}
}

// IncrementCycle records one completed monitor cycle.
func IncrementCycle() { atomic.AddInt64(&cyclesRun, 1) }

// IncrementListingsRead records listings fetched from the marketplace.
func IncrementListingsRead(n int) { atomic.AddInt64(&listingsRead, int64(n)) }

// IncrementFloorFetch records one upstream floor-price fetch (cache miss).
func IncrementFloorFetch() { atomic.AddInt64(&floorFetches, 1) }

// IncrementOpportunity records one accepted opportunity.
func IncrementOpportunity() { atomic.AddInt64(&opportunities, 1) }

// IncrementBuyAttempt records one purchase attempt.
func IncrementBuyAttempt() { atomic.AddInt64(&buyAttempts, 1) }

// IncrementBuySuccess records one successful purchase.
func IncrementBuySuccess() { atomic.AddInt64(&buySuccesses, 1) }

// IncrementAuditWrite records one audit object written to S3.
func IncrementAuditWrite() { atomic.AddInt64(&auditWrites, 1) }

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of pipeline counters.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	attempts := atomic.LoadInt64(&buyAttempts)
	successes := atomic.LoadInt64(&buySuccesses)
	successRate := 0.0
	if attempts > 0 {
		successRate = float64(successes) / float64(attempts)
	}

	fields := Fields{
		"cycles_run":      atomic.LoadInt64(&cyclesRun),
		"listings_read":   atomic.LoadInt64(&listingsRead),
		"floor_fetches":   atomic.LoadInt64(&floorFetches),
		"opportunities":   atomic.LoadInt64(&opportunities),
		"buy_attempts":    attempts,
		"buy_successes":   successes,
		"success_rate":    successRate,
		"audit_writes":    atomic.LoadInt64(&auditWrites),
		"errors_market":   atomic.LoadInt64(&errorsMarket),
		"errors_executor": atomic.LoadInt64(&errorsExecutor),
		"warns_market":    atomic.LoadInt64(&warnsMarket),
		"warns_executor":  atomic.LoadInt64(&warnsExecutor),
		"goroutines":      runtime.NumGoroutine(),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CyclesRun"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["cycles_run"].(int64)))},
		{MetricName: aws.String("ListingsRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["listings_read"].(int64)))},
		{MetricName: aws.String("FloorFetches"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["floor_fetches"].(int64)))},
		{MetricName: aws.String("Opportunities"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["opportunities"].(int64)))},
		{MetricName: aws.String("BuyAttempts"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(attempts))},
		{MetricName: aws.String("BuySuccesses"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(successes))},
		{MetricName: aws.String("SuccessRate"), Unit: cwtypes.StandardUnitNone, Value: aws.Float64(successRate)},
		{MetricName: aws.String("ErrorsMarket"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_market"].(int64)))},
		{MetricName: aws.String("ErrorsExecutor"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_executor"].(int64)))},
	}

	publishMetrics(ctx, data)
}
