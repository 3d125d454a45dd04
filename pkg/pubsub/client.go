package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/gcp"
	"github.com/angelmondragon/stockledger/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNothingRequired   = errors.New("no pubsub topics or subscriptions requested")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Resources lists the topics and subscriptions a binary cannot run without.
// They are checked at startup and again on every Ping.
type Resources struct {
	Topics        []string
	Subscriptions []string
}

// RelayResources is what the outbox relay publishes to.
func RelayResources(cfg config.PubSubConfig) Resources {
	return Resources{Topics: compact(cfg.LedgerTopic, cfg.NotificationTopic)}
}

// NotificationWorkerResources is what the alert consumer pulls from.
func NotificationWorkerResources(cfg config.PubSubConfig) Resources {
	return Resources{Subscriptions: compact(cfg.NotificationSubscription)}
}

// AnalyticsWorkerResources is what the movement sink pulls from.
func AnalyticsWorkerResources(cfg config.PubSubConfig) Resources {
	return Resources{Subscriptions: compact(cfg.AnalyticsSubscription)}
}

func compact(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Client wraps the Pub/Sub v2 client with the ledger's naming and the
// resources one binary depends on.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	need      Resources
}

func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, need Resources, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcpCfg.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if len(need.Topics) == 0 && len(need.Subscriptions) == 0 {
		return nil, errNothingRequired
	}

	psClient, err := pubsub.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, projectID: projectID, cfg: cfg, need: need}
	if err := c.checkResources(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topics":        need.Topics,
			"subscriptions": need.Subscriptions,
			"ordered":       cfg.OrderByAggregate,
		}), "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) checkResources(ctx context.Context) error {
	for _, name := range c.need.Topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
			Topic: c.resourceName("topics", name),
		})
		if err := describeLookup("topic", name, err); err != nil {
			return err
		}
	}
	for _, name := range c.need.Subscriptions {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
			Subscription: c.resourceName("subscriptions", name),
		})
		if err := describeLookup("subscription", name, err); err != nil {
			return err
		}
	}
	return nil
}

func describeLookup(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// Subscription accepts a short ID or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName("subscriptions", name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.NotificationSubscription)
}

func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.AnalyticsSubscription)
}

// Publisher returns a handle for topic. With OrderByAggregate set, messages
// sharing an ordering key are delivered in publish order.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName("topics", name)
	if full == "" {
		return nil
	}
	p := c.client.Publisher(full)
	p.EnableMessageOrdering = c.cfg.OrderByAggregate
	return p
}

// Ping re-checks every resource the binary was started with.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.checkResources(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands a short name to projects/<p>/<collection>/<name>.
// Names that are already fully qualified pass through.
func (c *Client) resourceName(collection, name string) string {
	if c == nil {
		return ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+collection+"/") {
		return name
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + collection + "/" + name
}
