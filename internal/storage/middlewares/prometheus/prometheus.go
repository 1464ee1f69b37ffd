package prometheus

import (
	"context"
	"time"

	"github.com/jdillenkofer/filedrop/internal/lifecycle"
	"github.com/jdillenkofer/filedrop/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opObjectExists     = "ObjectExists"
	opListObjects      = "ListObjects"
	opDeleteObject     = "DeleteObject"
	opPresignGetObject = "PresignGetObject"
	opPresignPutObject = "PresignPutObject"
)

type prometheusStoreMiddleware struct {
	*lifecycle.ValidatedLifecycle
	registerer              prometheus.Registerer
	failedApiOpsCounter     *prometheus.CounterVec
	successfulApiOpsCounter *prometheus.CounterVec
	apiOpDuration           *prometheus.HistogramVec
	listedObjectsCounter    prometheus.Counter
	innerStore              storage.ObjectStore
}

// Compile-time check to ensure prometheusStoreMiddleware implements storage.ObjectStore
var _ storage.ObjectStore = (*prometheusStoreMiddleware)(nil)

func NewStoreMiddleware(innerStore storage.ObjectStore, registerer prometheus.Registerer) (storage.ObjectStore, error) {
	failedApiOpsCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filedrop",
			Subsystem: "storage",
			Name:      "failed_api_ops_total",
			Help:      "No of failed object store operations partitioned by type",
		},
		[]string{"type"},
	)

	successfulApiOpsCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filedrop",
			Subsystem: "storage",
			Name:      "successful_api_ops_total",
			Help:      "No of successful object store operations partitioned by type",
		},
		[]string{"type"},
	)

	apiOpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "filedrop",
			Subsystem: "storage",
			Name:      "api_op_duration_seconds",
			Help:      "Latency of object store operations partitioned by type",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	listedObjectsCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "filedrop",
			Subsystem: "storage",
			Name:      "listed_objects_total",
			Help:      "Total objects returned by list operations",
		},
	)

	return &prometheusStoreMiddleware{
		ValidatedLifecycle:      lifecycle.NewValidatedLifecycle("PrometheusStoreMiddleware"),
		registerer:              registerer,
		failedApiOpsCounter:     failedApiOpsCounter,
		successfulApiOpsCounter: successfulApiOpsCounter,
		apiOpDuration:           apiOpDuration,
		listedObjectsCounter:    listedObjectsCounter,
		innerStore:              innerStore,
	}, nil
}

func (psm *prometheusStoreMiddleware) Start(ctx context.Context) error {
	if err := psm.ValidatedLifecycle.Start(ctx); err != nil {
		return err
	}
	psm.registerer.MustRegister(psm.failedApiOpsCounter)
	psm.registerer.MustRegister(psm.successfulApiOpsCounter)
	psm.registerer.MustRegister(psm.apiOpDuration)
	psm.registerer.MustRegister(psm.listedObjectsCounter)
	return psm.innerStore.Start(ctx)
}

func (psm *prometheusStoreMiddleware) Stop(ctx context.Context) error {
	if err := psm.ValidatedLifecycle.Stop(ctx); err != nil {
		return err
	}
	psm.registerer.Unregister(psm.listedObjectsCounter)
	psm.registerer.Unregister(psm.apiOpDuration)
	psm.registerer.Unregister(psm.successfulApiOpsCounter)
	psm.registerer.Unregister(psm.failedApiOpsCounter)
	return psm.innerStore.Stop(ctx)
}

func (psm *prometheusStoreMiddleware) observe(op string, start time.Time, err error) {
	psm.apiOpDuration.With(prometheus.Labels{"type": op}).Observe(time.Since(start).Seconds())
	if err != nil {
		psm.failedApiOpsCounter.With(prometheus.Labels{"type": op}).Inc()
		return
	}
	psm.successfulApiOpsCounter.With(prometheus.Labels{"type": op}).Inc()
}

func (psm *prometheusStoreMiddleware) ObjectExists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	exists, err := psm.innerStore.ObjectExists(ctx, key)
	psm.observe(opObjectExists, start, err)
	return exists, err
}

func (psm *prometheusStoreMiddleware) ListObjects(ctx context.Context, prefix string, continuationToken *string) (*storage.ListObjectsResult, error) {
	start := time.Now()
	result, err := psm.innerStore.ListObjects(ctx, prefix, continuationToken)
	psm.observe(opListObjects, start, err)
	if err != nil {
		return nil, err
	}
	psm.listedObjectsCounter.Add(float64(len(result.Objects)))
	return result, nil
}

func (psm *prometheusStoreMiddleware) DeleteObject(ctx context.Context, key string) error {
	start := time.Now()
	err := psm.innerStore.DeleteObject(ctx, key)
	psm.observe(opDeleteObject, start, err)
	return err
}

func (psm *prometheusStoreMiddleware) PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	url, err := psm.innerStore.PresignGetObject(ctx, key, ttl)
	psm.observe(opPresignGetObject, start, err)
	return url, err
}

func (psm *prometheusStoreMiddleware) PresignPutObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	url, err := psm.innerStore.PresignPutObject(ctx, key, ttl)
	psm.observe(opPresignPutObject, start, err)
	return url, err
}
