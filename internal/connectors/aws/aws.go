// Package aws connects to AWS: the implicit caller account through STS
// and individual S3 buckets, with credentials taken either from a
// configured access key or from the SDK default chain.
package aws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/tetherhq/tether/internal/connector"
)

const (
	// TypeID identifies the AWS connector type.
	TypeID = "aws"
	// ResourceTypeAccount is the account the credentials belong to.
	ResourceTypeAccount = "aws-account"
	// ResourceTypeBucket is an individual S3 bucket.
	ResourceTypeBucket = "s3-bucket"
	// MethodAccessKey authenticates with a long-lived or temporary access key.
	MethodAccessKey = "access_key"
	// MethodDefaultChain defers to the SDK default credential chain on the host.
	MethodDefaultChain = "default_chain"

	fieldAccessKeyID     = "access_key_id"
	fieldSecretAccessKey = "secret_access_key"
	fieldSessionToken    = "session_token"
	fieldRegion          = "region"

	defaultHTTPTimeout = 120 * time.Second
)

type stsAPI interface {
	GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type s3API interface {
	ListBuckets(context.Context, *s3.ListBucketsInput, ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Client is the authenticated handle handed back by Connect.
type Client struct {
	Config awssdk.Config
	STS    *sts.Client
	S3     *s3.Client
	// Bucket is set when the connector targets a single S3 bucket.
	Bucket string
}

type apiSet struct {
	cfg awssdk.Config
	sts stsAPI
	s3  s3API
}

type driver struct {
	cfg    connector.Config
	method string
	// newAPIs is swapped for a fake in tests.
	newAPIs func(ctx context.Context) (apiSet, error)
}

func newDriver(method connector.AuthMethodSpec, cfg connector.Config) *driver {
	d := &driver{cfg: cfg, method: method.MethodID}
	d.newAPIs = d.loadAPIs
	return d
}

func (d *driver) loadAPIs(ctx context.Context) (apiSet, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(&http.Client{Timeout: defaultHTTPTimeout}),
	}
	if region := d.cfg.Value(fieldRegion); region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	if d.method == MethodAccessKey {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			d.cfg.Value(fieldAccessKeyID),
			d.cfg.SecretValue(fieldSecretAccessKey).Reveal(),
			d.cfg.SecretValue(fieldSessionToken).Reveal(),
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return apiSet{}, &connector.ConfigurationError{Reason: "loading AWS SDK config", Err: err}
	}
	return apiSet{cfg: cfg, sts: sts.NewFromConfig(cfg), s3: s3.NewFromConfig(cfg)}, nil
}

// classify maps SDK failures onto connector error kinds: credential
// rejections are terminal, network failures are reported as unreachable
// so a verification can stay inconclusive.
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidClientTokenId", "SignatureDoesNotMatch", "ExpiredToken",
			"AccessDenied", "AccessDeniedException", "UnrecognizedClientException", "AuthFailure":
			return &connector.AuthorizationError{TypeID: TypeID, Err: err}
		}
		return fmt.Errorf("aws api: %w", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("aws api: %v: %w", err, connector.ErrProviderUnreachable)
	}
	return err
}

func (d *driver) Connect(ctx context.Context, req connector.Request) (any, error) {
	apis, err := d.newAPIs(ctx)
	if err != nil {
		return nil, err
	}
	// Prove the credentials before handing out a client.
	if _, err := apis.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return nil, classify(err)
	}

	client := &Client{Config: apis.cfg, STS: sts.NewFromConfig(apis.cfg), S3: s3.NewFromConfig(apis.cfg)}
	if req.ResourceType.ResourceTypeID == ResourceTypeBucket {
		client.Bucket = req.Parsed.Fields["bucket"]
		if client.Bucket == "" {
			client.Bucket = req.ResourceID
		}
	}
	return client, nil
}

func (d *driver) Verify(ctx context.Context, req connector.Request) ([]string, error) {
	apis, err := d.newAPIs(ctx)
	if err != nil {
		return nil, err
	}

	if req.ResourceType.ResourceTypeID == ResourceTypeBucket {
		if req.ResourceID != "" {
			if _, err := apis.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: awssdk.String(req.ResourceID)}); err != nil {
				return nil, classify(err)
			}
			return []string{req.ResourceID}, nil
		}
		out, err := apis.s3.ListBuckets(ctx, &s3.ListBucketsInput{})
		if err != nil {
			return nil, classify(err)
		}
		names := make([]string, 0, len(out.Buckets))
		for _, b := range out.Buckets {
			if name := awssdk.ToString(b.Name); name != "" {
				names = append(names, name)
			}
		}
		return names, nil
	}

	out, err := apis.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, classify(err)
	}
	account := awssdk.ToString(out.Account)
	if req.ResourceID != "" && req.ResourceID != account {
		return nil, &connector.AuthorizationError{
			TypeID: TypeID,
			Err:    fmt.Errorf("credentials belong to account %s, not %s", account, req.ResourceID),
		}
	}
	return []string{account}, nil
}
