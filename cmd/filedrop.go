package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jdillenkofer/filedrop/internal/authorization"
	"github.com/jdillenkofer/filedrop/internal/files"
	"github.com/jdillenkofer/filedrop/internal/hooks"
	"github.com/jdillenkofer/filedrop/internal/hooks/cognito"
	"github.com/jdillenkofer/filedrop/internal/http/middlewares"
	"github.com/jdillenkofer/filedrop/internal/http/server"
	"github.com/jdillenkofer/filedrop/internal/http/server/authentication"
	"github.com/jdillenkofer/filedrop/internal/settings"
	"github.com/jdillenkofer/filedrop/internal/storage"
	"github.com/jdillenkofer/filedrop/internal/storage/inmemory"
	prometheusMiddleware "github.com/jdillenkofer/filedrop/internal/storage/middlewares/prometheus"
	"github.com/jdillenkofer/filedrop/internal/storage/middlewares/tracing"
	"github.com/jdillenkofer/filedrop/internal/storage/s3client"
	"github.com/jdillenkofer/filedrop/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

const subcommandServe = "serve"
const subcommandPreSignup = "pre-signup"
const subcommandPostConfirmation = "post-confirmation"

// commandEnvKey and lambdaHandlerEnvKey select the subcommand when the binary
// is started without arguments, e.g. as a provided.al2 bootstrap.
const commandEnvKey = "FILEDROP_COMMAND"
const lambdaHandlerEnvKey = "_HANDLER"

const memoryBasePath = "/memory"

const healthCheckKey = ".filedrop-health"
const shutdownTimeout = 10 * time.Second

func main() {
	var programLevel = new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     programLevel,
	}))
	slog.SetDefault(logger)

	subcommand, args, ok := resolveSubcommand(os.Args, os.Getenv)
	if !ok {
		slog.Info(fmt.Sprintf("Usage: %s %s|%s|%s [options]\n", os.Args[0], subcommandServe, subcommandPreSignup, subcommandPostConfirmation))
		os.Exit(1)
	}

	s, err := settings.LoadSettings(args)
	if err != nil {
		slog.Error(fmt.Sprint("Error while loading settings: ", err))
		os.Exit(1)
	}
	programLevel.Set(s.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch subcommand {
	case subcommandServe:
		err = serve(ctx, s)
	case subcommandPreSignup:
		lambda.Start(hooks.HandlePreSignup)
	case subcommandPostConfirmation:
		err = postConfirmation(ctx, s)
	default:
		slog.Error(fmt.Sprintf("Invalid subcommand: %s. Expected one of '%s', '%s', '%s'.\n", subcommand, subcommandServe, subcommandPreSignup, subcommandPostConfirmation))
		os.Exit(1)
	}
	if err != nil {
		slog.Error(fmt.Sprintf("%s failed: %s", subcommand, err))
		os.Exit(1)
	}
}

// resolveSubcommand takes the subcommand from the first argument and falls back
// to FILEDROP_COMMAND, then to the lambda _HANDLER name.
func resolveSubcommand(args []string, getenv func(string) string) (string, []string, bool) {
	if len(args) >= 2 && !strings.HasPrefix(args[1], "-") {
		return args[1], args[2:], true
	}
	var rest []string
	if len(args) >= 2 {
		rest = args[1:]
	}
	for _, key := range []string{commandEnvKey, lambdaHandlerEnvKey} {
		subcommand := strings.TrimSpace(getenv(key))
		if subcommand != "" {
			return subcommand, rest, true
		}
	}
	return "", nil, false
}

func loadAwsConfig(ctx context.Context, s *settings.Settings) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s.Region()),
	}
	if s.AccessKeyId() != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.AccessKeyId(), s.SecretAccessKey(), "")))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

func buildStore(ctx context.Context, s *settings.Settings) (storage.ObjectStore, error) {
	switch s.StoreType() {
	case settings.StoreTypeMemory:
		slog.Warn("Using the in-memory object store, objects are lost on shutdown")
		return inmemory.NewStore(fmt.Sprintf("http://localhost:%d%s", s.Port(), memoryBasePath)), nil
	case settings.StoreTypeS3:
		cfg, err := loadAwsConfig(ctx, s)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = s.S3Endpoint()
			o.UsePathStyle = s.S3UsePathStyle()
		})
		return s3client.NewStoreFromClient(s.BucketName(), client)
	}
	return nil, settings.ErrUnknownStoreType
}

func buildVerifier(s *settings.Settings) (*authentication.Verifier, error) {
	opts := authentication.VerifierOptions{
		Issuer:   s.JwtIssuer(),
		Audience: s.JwtAudience(),
	}
	if s.JwtSecret() != "" {
		opts.HmacSecret = []byte(s.JwtSecret())
	}
	if s.JwtPublicKeyPath() != "" {
		publicKey, err := authentication.LoadRsaPublicKey(s.JwtPublicKeyPath())
		if err != nil {
			return nil, fmt.Errorf("loading jwt public key: %w", err)
		}
		opts.RsaPublicKeys = []*rsa.PublicKey{publicKey}
	}
	return authentication.NewVerifier(opts)
}

// buildApplication wires store middlewares, service and http handler. The
// returned store is not started yet.
func buildApplication(ctx context.Context, s *settings.Settings, registerer prometheus.Registerer) (http.Handler, storage.ObjectStore, error) {
	store, err := buildStore(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	memoryStore, _ := store.(*inmemory.Store)
	store, err = tracing.NewStoreMiddleware("ObjectStore", store)
	if err != nil {
		return nil, nil, err
	}
	store, err = prometheusMiddleware.NewStoreMiddleware(store, registerer)
	if err != nil {
		return nil, nil, err
	}

	verifier, err := buildVerifier(s)
	if err != nil {
		return nil, nil, err
	}
	metrics, err := middlewares.NewHttpMetrics(registerer)
	if err != nil {
		return nil, nil, err
	}
	service := files.NewService(authorization.NewEngine(s.AdminGroup()), store, s.UrlExpiration())
	handler := server.SetupServer(verifier, service, metrics)
	if memoryStore != nil {
		// presigned urls of the memory store carry no bearer token
		mux := http.NewServeMux()
		mux.Handle(memoryBasePath+"/", http.StripPrefix(memoryBasePath, memoryStore.Handler()))
		mux.Handle("/", handler)
		handler = mux
	}
	return handler, store, nil
}

func serve(ctx context.Context, s *settings.Settings) error {
	err := s.ValidateServe()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.SetupOTelSDK(ctx, s)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		err := shutdownTelemetry(context.Background())
		if err != nil {
			slog.Error(fmt.Sprint("Couldn't shutdown telemetry: ", err))
		}
	}()

	handler, store, err := buildApplication(ctx, s, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	err = store.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting store: %w", err)
	}
	defer func() {
		err := store.Stop(context.Background())
		if err != nil {
			slog.Error(fmt.Sprint("Couldn't stop store: ", err))
		}
	}()

	addr := fmt.Sprintf("%v:%v", s.BindAddress(), s.Port())
	httpServer := &http.Server{
		BaseContext: func(net.Listener) context.Context { return ctx },
		Addr:        addr,
		Handler:     handler,
	}
	servers := []*http.Server{httpServer}

	if s.MonitoringPortEnabled() {
		storeHealthCheck := func(ctx context.Context) error {
			_, err := store.ObjectExists(ctx, healthCheckKey)
			return err
		}
		monitoringHandler := server.SetupMonitoringServer(prometheus.DefaultGatherer, storeHealthCheck)
		monitoringAddr := fmt.Sprintf("%v:%v", s.BindAddress(), s.MonitoringPort())
		httpMonitoringServer := &http.Server{
			BaseContext: func(net.Listener) context.Context { return ctx },
			Addr:        monitoringAddr,
			Handler:     monitoringHandler,
		}
		servers = append(servers, httpMonitoringServer)
		go (func() {
			slog.Info(fmt.Sprintf("Listening with monitoring api on http://%v\n", monitoringAddr))
			err := httpMonitoringServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error(fmt.Sprintf("Error while running monitoring server: %s", err))
			}
		})()
	}

	go (func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			srv.Shutdown(shutdownCtx)
		}
	})()

	slog.Info(fmt.Sprintf("Listening with file api on http://%v\n", addr))
	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("running http server: %w", err)
	}
	return nil
}

func postConfirmation(ctx context.Context, s *settings.Settings) error {
	cfg, err := loadAwsConfig(ctx, s)
	if err != nil {
		return err
	}
	assigner := cognito.NewGroupAssigner(cognitoidentityprovider.NewFromConfig(cfg))
	hook := hooks.NewPostConfirmationHook(assigner, s.UserPoolId(), s.DefaultGroup())
	lambda.Start(hook.Handle)
	return nil
}
