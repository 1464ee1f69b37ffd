package settings

import (
	"os"
	"strconv"
	"strings"
)

const envKeyPrefix string = "FILEDROP"

const configPathEnvKey string = envKeyPrefix + "_CONFIG"
const regionEnvKey string = envKeyPrefix + "_REGION"
const bucketNameEnvKey string = envKeyPrefix + "_BUCKET_NAME"
const storeTypeEnvKey string = envKeyPrefix + "_STORE_TYPE"
const s3EndpointEnvKey string = envKeyPrefix + "_S3_ENDPOINT"
const s3UsePathStyleEnvKey string = envKeyPrefix + "_S3_USE_PATH_STYLE"
const accessKeyIdEnvKey string = envKeyPrefix + "_ACCESS_KEY_ID"
const secretAccessKeyEnvKey string = envKeyPrefix + "_SECRET_ACCESS_KEY"
const urlExpirationEnvKey string = envKeyPrefix + "_URL_EXPIRATION"
const defaultGroupEnvKey string = envKeyPrefix + "_DEFAULT_GROUP"
const adminGroupEnvKey string = envKeyPrefix + "_ADMIN_GROUP"
const userPoolIdEnvKey string = envKeyPrefix + "_USER_POOL_ID"
const bindAddressEnvKey string = envKeyPrefix + "_BIND_ADDRESS"
const portEnvKey string = envKeyPrefix + "_PORT"
const monitoringPortEnvKey string = envKeyPrefix + "_MONITORING_PORT"
const monitoringPortEnabledEnvKey string = envKeyPrefix + "_MONITORING_PORT_ENABLED"
const jwtSecretEnvKey string = envKeyPrefix + "_JWT_SECRET"
const jwtPublicKeyPathEnvKey string = envKeyPrefix + "_JWT_PUBLIC_KEY_PATH"
const jwtIssuerEnvKey string = envKeyPrefix + "_JWT_ISSUER"
const jwtAudienceEnvKey string = envKeyPrefix + "_JWT_AUDIENCE"
const otelExporterEnvKey string = envKeyPrefix + "_OTEL_EXPORTER"
const otelEndpointEnvKey string = envKeyPrefix + "_OTEL_ENDPOINT"
const logLevelEnvKey string = envKeyPrefix + "_LOG_LEVEL"

func getStringFromEnv(envKey string) *string {
	val := os.Getenv(envKey)
	if val == "" {
		return nil
	}
	return &val
}

func getIntFromEnv(envKey string) *int {
	val := os.Getenv(envKey)
	if val == "" {
		return nil
	}
	int64Val, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return nil
	}
	intVal := int(int64Val)
	return &intVal
}

func getBoolFromEnv(envKey string) *bool {
	val := os.Getenv(envKey)
	val = strings.ToLower(val)
	if val == "" {
		return nil
	}
	retval := val == "1" || val == "t" || val == "true"
	return &retval
}

func loadSettingsFromEnv() *Settings {
	return &Settings{
		region:                getStringFromEnv(regionEnvKey),
		bucketName:            getStringFromEnv(bucketNameEnvKey),
		storeType:             getStringFromEnv(storeTypeEnvKey),
		s3Endpoint:            getStringFromEnv(s3EndpointEnvKey),
		s3UsePathStyle:        getBoolFromEnv(s3UsePathStyleEnvKey),
		accessKeyId:           getStringFromEnv(accessKeyIdEnvKey),
		secretAccessKey:       getStringFromEnv(secretAccessKeyEnvKey),
		urlExpiration:         getIntFromEnv(urlExpirationEnvKey),
		defaultGroup:          getStringFromEnv(defaultGroupEnvKey),
		adminGroup:            getStringFromEnv(adminGroupEnvKey),
		userPoolId:            getStringFromEnv(userPoolIdEnvKey),
		bindAddress:           getStringFromEnv(bindAddressEnvKey),
		port:                  getIntFromEnv(portEnvKey),
		monitoringPort:        getIntFromEnv(monitoringPortEnvKey),
		monitoringPortEnabled: getBoolFromEnv(monitoringPortEnabledEnvKey),
		jwtSecret:             getStringFromEnv(jwtSecretEnvKey),
		jwtPublicKeyPath:      getStringFromEnv(jwtPublicKeyPathEnvKey),
		jwtIssuer:             getStringFromEnv(jwtIssuerEnvKey),
		jwtAudience:           getStringFromEnv(jwtAudienceEnvKey),
		otelExporter:          getStringFromEnv(otelExporterEnvKey),
		otelEndpoint:          getStringFromEnv(otelEndpointEnvKey),
		logLevel:              getStringFromEnv(logLevelEnvKey),
	}
}
