package aws

import (
	"context"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/tetherhq/tether/internal/connector"
)

var (
	accountIDShape = regexp.MustCompile(`^[0-9]{12}$`)

	// Bucket names per the S3 naming rules: 3-63 characters, lowercase
	// letters, digits, dots and hyphens, starting and ending alphanumeric.
	bucketNameShape = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]{1,61}[a-z0-9]$`)
	bucketURIShape  = regexp.MustCompile(`^s3://([a-z0-9][a-z0-9.\-]{1,61}[a-z0-9])/?$`)
	bucketARNShape  = regexp.MustCompile(`^arn:(?:aws|aws-cn|aws-us-gov):s3:::([a-z0-9][a-z0-9.\-]{1,61}[a-z0-9])$`)
)

// AccountResolver canonicalizes AWS account ids. Only the plain 12-digit
// form is accepted.
func AccountResolver() connector.Resolver {
	return connector.ShapeResolver{
		ResourceType: ResourceTypeAccount,
		Hint:         "use the 12-digit AWS account id",
		Shapes: []connector.Shape{{
			Pattern: accountIDShape,
			Parse: func(raw string) connector.Parsed {
				return connector.Parsed{Canonical: raw, Fields: map[string]string{"account": raw}}
			},
		}},
	}
}

// BucketResolver canonicalizes S3 bucket references. ARNs and s3:// URIs
// collapse to the bare bucket name, which is the canonical form.
func BucketResolver() connector.Resolver {
	bucketParsed := func(name string) connector.Parsed {
		return connector.Parsed{Canonical: name, Fields: map[string]string{"bucket": name}}
	}
	return connector.ShapeResolver{
		ResourceType: ResourceTypeBucket,
		Hint:         "use the bucket name, an s3://<bucket> URI, or an S3 bucket ARN",
		Shapes: []connector.Shape{
			{
				Pattern: bucketARNShape,
				Parse: func(raw string) connector.Parsed {
					return bucketParsed(bucketARNShape.FindStringSubmatch(raw)[1])
				},
			},
			{
				Pattern: bucketURIShape,
				Parse: func(raw string) connector.Parsed {
					return bucketParsed(bucketURIShape.FindStringSubmatch(raw)[1])
				},
			},
			{
				Pattern: bucketNameShape,
				Parse: func(raw string) connector.Parsed {
					return bucketParsed(raw)
				},
			},
		},
	}
}

// TypeSpec returns the AWS connector type metadata.
func TypeSpec() connector.TypeSpec {
	return connector.TypeSpec{
		TypeID:      TypeID,
		DisplayName: "AWS Service Connector",
		Description: "Authenticates with AWS and manages clients for the caller account and individual S3 buckets.",
		AuthMethods: []connector.AuthMethodSpec{
			{
				MethodID:    MethodAccessKey,
				Description: "Long-lived access key or temporary session credentials.",
				Schema: connector.Schema{Fields: []connector.FieldSpec{
					{Name: fieldAccessKeyID, Description: "AWS access key id.", Required: true},
					{Name: fieldSecretAccessKey, Description: "AWS secret access key.", Required: true, Secret: true},
					{Name: fieldSessionToken, Description: "Session token for temporary credentials.", Secret: true},
					{Name: fieldRegion, Description: "Default region for API calls."},
				}},
			},
			{
				MethodID:    MethodDefaultChain,
				Description: "SDK default credential chain on the host (env vars, shared config, instance metadata).",
				Schema: connector.Schema{Fields: []connector.FieldSpec{
					{Name: fieldRegion, Description: "Default region for API calls."},
				}},
			},
		},
		ResourceTypes: []connector.ResourceTypeSpec{
			{
				ResourceTypeID: ResourceTypeAccount,
				DisplayName:    "AWS account",
				// The credentials determine the account; there is nothing to
				// bind, and discovery reports the caller identity's account.
				SupportsInstances: false,
				SupportsDiscovery: true,
				AuthMethods:       []string{MethodAccessKey, MethodDefaultChain},
				Resolver:          AccountResolver(),
			},
			{
				ResourceTypeID:    ResourceTypeBucket,
				DisplayName:       "S3 bucket",
				SupportsInstances: true,
				SupportsDiscovery: true,
				AuthMethods:       []string{MethodAccessKey, MethodDefaultChain},
				Resolver:          BucketResolver(),
			},
		},
	}
}

// AutoConfigure harvests credentials from the SDK default chain and turns
// them into an access-key seed, so the resulting connector keeps working
// away from the machine it was configured on.
func AutoConfigure(ctx context.Context, opts connector.AutoConfigureOptions) (connector.Seed, error) {
	if opts.AuthMethod != "" && opts.AuthMethod != MethodAccessKey {
		return connector.Seed{}, &connector.NotSupportedError{
			TypeID:     TypeID,
			Capability: "auto-configure with auth method " + opts.AuthMethod,
		}
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return connector.Seed{}, &connector.ConfigurationError{Reason: "loading AWS SDK config", Err: err}
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return connector.Seed{}, &connector.ConfigurationError{
			Reason: "no AWS credentials found in the environment or shared config",
			Err:    err,
		}
	}

	values := map[string]string{
		fieldAccessKeyID:     creds.AccessKeyID,
		fieldSecretAccessKey: creds.SecretAccessKey,
	}
	if creds.SessionToken != "" {
		values[fieldSessionToken] = creds.SessionToken
	}
	if region := strings.TrimSpace(cfg.Region); region != "" {
		values[fieldRegion] = region
	}

	seed := connector.Seed{
		AuthMethod:   MethodAccessKey,
		Values:       values,
		ResourceType: opts.ResourceType,
		ResourceID:   opts.ResourceID,
	}
	if seed.ResourceType == "" {
		seed.ResourceType = ResourceTypeAccount
	}
	return seed, nil
}

// NewRegistration builds the registry entry for the AWS connector.
func NewRegistration() connector.Registration {
	return connector.Registration{
		Spec: TypeSpec(),
		NewDriver: func(method connector.AuthMethodSpec, cfg connector.Config) (connector.Driver, error) {
			return newDriver(method, cfg), nil
		},
		AutoConfigure: AutoConfigure,
	}
}
