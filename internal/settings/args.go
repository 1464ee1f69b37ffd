package settings

import (
	"flag"
	"io"
)

type flagRegistry struct {
	flagSet *flag.FlagSet
}

func (fr *flagRegistry) isSet(name string) bool {
	found := false
	fr.flagSet.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func (fr *flagRegistry) registerStringFlag(name string, defaultValue string, description string) func() *string {
	stringVar := fr.flagSet.String(name, defaultValue, description)
	return func() *string {
		if !fr.isSet(name) {
			return nil
		}
		return stringVar
	}
}

func (fr *flagRegistry) registerIntFlag(name string, defaultValue int, description string) func() *int {
	intVar := fr.flagSet.Int(name, defaultValue, description)
	return func() *int {
		if !fr.isSet(name) {
			return nil
		}
		return intVar
	}
}

func (fr *flagRegistry) registerBoolFlag(name string, defaultValue bool, description string) func() *bool {
	boolVar := fr.flagSet.Bool(name, defaultValue, description)
	return func() *bool {
		if !fr.isSet(name) {
			return nil
		}
		return boolVar
	}
}

// loadSettingsFromCmdArgs only reports flags that were passed explicitly, so
// defaults never shadow the config file.
func loadSettingsFromCmdArgs(args []string) (*Settings, string, error) {
	fr := &flagRegistry{flagSet: flag.NewFlagSet("filedrop", flag.ContinueOnError)}
	fr.flagSet.SetOutput(io.Discard)

	configPath := fr.flagSet.String("config", defaultConfigPath, "path to the json config file")
	regionAccessor := fr.registerStringFlag("region", defaultRegion, "the aws region")
	bucketNameAccessor := fr.registerStringFlag("bucketName", "", "the bucket holding the files")
	storeTypeAccessor := fr.registerStringFlag("storeType", defaultStoreType, "the object store backend (s3 or memory)")
	s3EndpointAccessor := fr.registerStringFlag("s3Endpoint", "", "custom s3 endpoint, e.g. for minio")
	s3UsePathStyleAccessor := fr.registerBoolFlag("s3UsePathStyle", defaultS3UsePathStyle, "use path style bucket addressing")
	accessKeyIdAccessor := fr.registerStringFlag("accessKeyId", "", "static aws access key id")
	secretAccessKeyAccessor := fr.registerStringFlag("secretAccessKey", "", "static aws secret access key")
	urlExpirationAccessor := fr.registerIntFlag("urlExpiration", defaultUrlExpirationSeconds, "lifetime of presigned urls in seconds")
	defaultGroupAccessor := fr.registerStringFlag("defaultGroup", defaultDefaultGroup, "group new accounts are added to")
	adminGroupAccessor := fr.registerStringFlag("adminGroup", defaultAdminGroup, "group granting admin access")
	userPoolIdAccessor := fr.registerStringFlag("userPoolId", "", "the user pool id used by the post-confirmation hook")
	bindAddressAccessor := fr.registerStringFlag("bindAddress", defaultBindAddress, "the address the api socket is bound to")
	portAccessor := fr.registerIntFlag("port", defaultPort, "the port for the api")
	monitoringPortAccessor := fr.registerIntFlag("monitoringPort", defaultMonitoringPort, "the port for metrics and health")
	monitoringPortEnabledAccessor := fr.registerBoolFlag("monitoringPortEnabled", defaultMonitoringPortEnabled, "serve metrics and health")
	jwtSecretAccessor := fr.registerStringFlag("jwtSecret", "", "shared secret for HS256 id tokens")
	jwtPublicKeyPathAccessor := fr.registerStringFlag("jwtPublicKeyPath", "", "PEM file with the RSA public key for RS256 id tokens")
	jwtIssuerAccessor := fr.registerStringFlag("jwtIssuer", "", "required token issuer")
	jwtAudienceAccessor := fr.registerStringFlag("jwtAudience", "", "required token audience")
	otelExporterAccessor := fr.registerStringFlag("otelExporter", defaultOtelExporter, "trace exporter (otlp or stdout)")
	otelEndpointAccessor := fr.registerStringFlag("otelEndpoint", "", "otlp http endpoint")
	logLevelAccessor := fr.registerStringFlag("logLevel", defaultLogLevel, "debug, info, warn or error")

	err := fr.flagSet.Parse(args)
	if err != nil {
		return nil, "", err
	}

	return &Settings{
		region:                regionAccessor(),
		bucketName:            bucketNameAccessor(),
		storeType:             storeTypeAccessor(),
		s3Endpoint:            s3EndpointAccessor(),
		s3UsePathStyle:        s3UsePathStyleAccessor(),
		accessKeyId:           accessKeyIdAccessor(),
		secretAccessKey:       secretAccessKeyAccessor(),
		urlExpiration:         urlExpirationAccessor(),
		defaultGroup:          defaultGroupAccessor(),
		adminGroup:            adminGroupAccessor(),
		userPoolId:            userPoolIdAccessor(),
		bindAddress:           bindAddressAccessor(),
		port:                  portAccessor(),
		monitoringPort:        monitoringPortAccessor(),
		monitoringPortEnabled: monitoringPortEnabledAccessor(),
		jwtSecret:             jwtSecretAccessor(),
		jwtPublicKeyPath:      jwtPublicKeyPathAccessor(),
		jwtIssuer:             jwtIssuerAccessor(),
		jwtAudience:           jwtAudienceAccessor(),
		otelExporter:          otelExporterAccessor(),
		otelEndpoint:          otelEndpointAccessor(),
		logLevel:              logLevelAccessor(),
	}, *configPath, nil
}
