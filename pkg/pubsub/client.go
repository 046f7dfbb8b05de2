package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
)

// Role selects which configured resources a process depends on. The API only
// publishes broadcast events; the notification worker only consumes requests.
type Role int

const (
	RolePublisher Role = iota + 1
	RoleSubscriber
)

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

type resource struct {
	kind resourceKind
	name string
}

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	required  []resource
}

var errProjectIDRequired = errors.New("gcp project id is required")

// NewClient opens a Pub/Sub v2 client and checks that every resource the
// role needs exists before returning.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	required, err := requiredResources(cfg, role)
	if err != nil {
		return nil, err
	}

	psClient, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, projectID: projectID, cfg: cfg, required: required}

	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "pubsub_resources", len(required)), "pubsub.ready")
	}
	return c, nil
}

func requiredResources(cfg config.PubSubConfig, role Role) ([]resource, error) {
	var r resource
	switch role {
	case RolePublisher:
		r = resource{kind: kindTopic, name: strings.TrimSpace(cfg.BroadcastTopic)}
	case RoleSubscriber:
		r = resource{kind: kindSubscription, name: strings.TrimSpace(cfg.NotificationRequestSubscription)}
	default:
		return nil, fmt.Errorf("unknown pubsub role %d", role)
	}
	if r.name == "" {
		return nil, fmt.Errorf("pubsub %s name is required", strings.TrimSuffix(string(r.kind), "s"))
	}
	return []resource{r}, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// Ping looks up every required topic or subscription.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	var errs error
	for _, r := range c.required {
		errs = multierr.Append(errs, c.lookup(ctx, r))
	}
	return errs
}

func (c *Client) lookup(ctx context.Context, r resource) error {
	full := c.resourceName(r.kind, r.name)
	var err error
	switch r.kind {
	case kindTopic:
		_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	case kindSubscription:
		_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	}
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", full)
	default:
		return fmt.Errorf("looking up %s: %w", full, err)
	}
}

// Subscription accepts a short id or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	full := c.resourceName(kindSubscription, name)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Subscriber(full)
}

func (c *Client) NotificationRequestSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.NotificationRequestSubscription)
}

// Publisher accepts a short id or a full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	full := c.resourceName(kindTopic, name)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Publisher(full)
}

func (c *Client) BroadcastPublisher() *pubsub.Publisher {
	return c.Publisher(c.cfg.BroadcastTopic)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands id into projects/<project>/<kind>/<id>. Names that
// already carry a project path are returned as given.
func (c *Client) resourceName(kind resourceKind, id string) string {
	if c == nil {
		return ""
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+string(kind)+"/") {
		return id
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + string(kind) + "/" + id
}
