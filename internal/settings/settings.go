package settings

import (
	"errors"
	"log/slog"
	"reflect"
	"time"
	"unsafe"
)

const defaultRegion = "eu-central-1"
const defaultStoreType = StoreTypeS3
const defaultS3UsePathStyle = false
const defaultUrlExpirationSeconds = 3600
const defaultDefaultGroup = "User-Group"
const defaultAdminGroup = "Admin-Group"
const defaultBindAddress = "0.0.0.0"
const defaultPort = 9000
const defaultMonitoringPort = 9001
const defaultMonitoringPortEnabled = true
const defaultOtelExporter = ""
const defaultLogLevel = "info"
const defaultConfigPath = "config.json"

const StoreTypeS3 = "s3"
const StoreTypeMemory = "memory"

const OtelExporterOtlp = "otlp"
const OtelExporterStdout = "stdout"

const mergableTagKey = "mergable"

var ErrMissingBucketName = errors.New("bucketName is required for the s3 store")
var ErrUnknownStoreType = errors.New("unknown storeType")
var ErrUnknownOtelExporter = errors.New("unknown otelExporter")
var ErrMissingJwtKey = errors.New("either jwtSecret or jwtPublicKeyPath is required")

type Settings struct {
	region                *string `mergable:""`
	bucketName            *string `mergable:""`
	storeType             *string `mergable:""`
	s3Endpoint            *string `mergable:""`
	s3UsePathStyle        *bool   `mergable:""`
	accessKeyId           *string `mergable:""`
	secretAccessKey       *string `mergable:""`
	urlExpiration         *int    `mergable:""`
	defaultGroup          *string `mergable:""`
	adminGroup            *string `mergable:""`
	userPoolId            *string `mergable:""`
	bindAddress           *string `mergable:""`
	port                  *int    `mergable:""`
	monitoringPort        *int    `mergable:""`
	monitoringPortEnabled *bool   `mergable:""`
	jwtSecret             *string `mergable:""`
	jwtPublicKeyPath      *string `mergable:""`
	jwtIssuer             *string `mergable:""`
	jwtAudience           *string `mergable:""`
	otelExporter          *string `mergable:""`
	otelEndpoint          *string `mergable:""`
	logLevel              *string `mergable:""`
}

func valueOrDefault[V any](v *V, defaultValue V) V {
	if v == nil {
		return defaultValue
	}
	return *v
}

func (s *Settings) Region() string {
	return valueOrDefault(s.region, defaultRegion)
}

func (s *Settings) BucketName() string {
	return valueOrDefault(s.bucketName, "")
}

func (s *Settings) StoreType() string {
	return valueOrDefault(s.storeType, defaultStoreType)
}

// S3Endpoint overrides the aws endpoint, e.g. for minio. nil means the aws default.
func (s *Settings) S3Endpoint() *string {
	return s.s3Endpoint
}

func (s *Settings) S3UsePathStyle() bool {
	return valueOrDefault(s.s3UsePathStyle, defaultS3UsePathStyle)
}

func (s *Settings) AccessKeyId() string {
	return valueOrDefault(s.accessKeyId, "")
}

func (s *Settings) SecretAccessKey() string {
	return valueOrDefault(s.secretAccessKey, "")
}

func (s *Settings) UrlExpiration() time.Duration {
	return time.Duration(valueOrDefault(s.urlExpiration, defaultUrlExpirationSeconds)) * time.Second
}

func (s *Settings) DefaultGroup() string {
	return valueOrDefault(s.defaultGroup, defaultDefaultGroup)
}

func (s *Settings) AdminGroup() string {
	return valueOrDefault(s.adminGroup, defaultAdminGroup)
}

func (s *Settings) UserPoolId() string {
	return valueOrDefault(s.userPoolId, "")
}

func (s *Settings) BindAddress() string {
	return valueOrDefault(s.bindAddress, defaultBindAddress)
}

func (s *Settings) Port() int {
	return valueOrDefault(s.port, defaultPort)
}

func (s *Settings) MonitoringPort() int {
	return valueOrDefault(s.monitoringPort, defaultMonitoringPort)
}

func (s *Settings) MonitoringPortEnabled() bool {
	return valueOrDefault(s.monitoringPortEnabled, defaultMonitoringPortEnabled)
}

func (s *Settings) JwtSecret() string {
	return valueOrDefault(s.jwtSecret, "")
}

func (s *Settings) JwtPublicKeyPath() string {
	return valueOrDefault(s.jwtPublicKeyPath, "")
}

func (s *Settings) JwtIssuer() string {
	return valueOrDefault(s.jwtIssuer, "")
}

func (s *Settings) JwtAudience() string {
	return valueOrDefault(s.jwtAudience, "")
}

func (s *Settings) OtelExporter() string {
	return valueOrDefault(s.otelExporter, defaultOtelExporter)
}

func (s *Settings) OtelEndpoint() string {
	return valueOrDefault(s.otelEndpoint, "")
}

func (s *Settings) LogLevel() slog.Level {
	var level slog.Level
	err := level.UnmarshalText([]byte(valueOrDefault(s.logLevel, defaultLogLevel)))
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ValidateServe checks the settings needed by the http api.
func (s *Settings) ValidateServe() error {
	switch s.StoreType() {
	case StoreTypeS3:
		if s.BucketName() == "" {
			return ErrMissingBucketName
		}
	case StoreTypeMemory:
	default:
		return errors.Join(ErrUnknownStoreType, errors.New(s.StoreType()))
	}
	switch s.OtelExporter() {
	case "", OtelExporterOtlp, OtelExporterStdout:
	default:
		return errors.Join(ErrUnknownOtelExporter, errors.New(s.OtelExporter()))
	}
	if s.JwtSecret() == "" && s.JwtPublicKeyPath() == "" {
		return ErrMissingJwtKey
	}
	return nil
}

func getUnexportedField(field reflect.Value) interface{} {
	return reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem().Interface()
}

func setUnexportedField(field reflect.Value, value interface{}) {
	reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem().Set(reflect.ValueOf(value))
}

func isNilish(val any) bool {
	if val == nil {
		return true
	}

	v := reflect.ValueOf(val)
	k := v.Kind()
	switch k {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer,
		reflect.UnsafePointer, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}

	return false
}

func (s *Settings) merge(other *Settings) {
	fields := reflect.VisibleFields(reflect.TypeOf(other).Elem())
	sStruct := reflect.ValueOf(s).Elem()
	otherStruct := reflect.ValueOf(other).Elem()

	for _, field := range fields {
		if _, ok := field.Tag.Lookup(mergableTagKey); !ok {
			continue
		}
		sField := sStruct.FieldByName(field.Name)
		otherField := otherStruct.FieldByName(field.Name)

		otherFieldValue := getUnexportedField(otherField)
		if field.Type.Kind() == reflect.Pointer && isNilish(otherFieldValue) {
			continue
		}
		setUnexportedField(sField, otherFieldValue)
	}
}

func mergeSettings(settings ...*Settings) *Settings {
	var result *Settings = &Settings{}
	for _, setting := range settings {
		if setting == nil {
			continue
		}
		result.merge(setting)
	}
	return result
}

// LoadSettings merges config file, command line flags and environment, in
// ascending precedence. The config file defaults to config.json and may be
// moved with -config or FILEDROP_CONFIG; a missing file is not an error.
func LoadSettings(args []string) (*Settings, error) {
	cmdArgsSettings, configPath, err := loadSettingsFromCmdArgs(args)
	if err != nil {
		return nil, err
	}
	if envConfigPath := getStringFromEnv(configPathEnvKey); envConfigPath != nil {
		configPath = *envConfigPath
	}
	jsonSettings, err := loadSettingsFromJson(configPath)
	if err != nil {
		return nil, err
	}
	envSettings := loadSettingsFromEnv()
	settings := mergeSettings(jsonSettings, cmdArgsSettings, envSettings)
	return settings, nil
}
