package dispatcher

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"

	"sravz-backend/pkg/apperrors"
	appconfig "sravz-backend/pkg/config"

	"github.com/nsqio/go-nsq"
)

// channelName is the shared consumer channel; all worker instances compete
// for messages on it.
const channelName = "rust-backend"

// Bus owns the NSQ consumer and producer. The consumer always acks: the
// dispatcher converts every failure into a drop or an error reply, so nothing
// is ever requeued.
type Bus struct {
	cfg    *appconfig.AppConfig
	nsqCfg *nsq.Config

	consumer *nsq.Consumer
	producer *nsq.Producer

	lookupdAddrs []string
	nsqdAddrs    []string
}

// NewBus builds the producer side on one of the configured nsqd hosts,
// chosen at random. The consumer side starts later, once a Dispatcher exists
// to feed; the dispatcher in turn publishes replies through the Bus.
func NewBus(cfg *appconfig.AppConfig) (*Bus, error) {
	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxInFlight = cfg.MaxInFlight

	nsqdAddrs := splitHosts(cfg.NSQHost)
	if len(nsqdAddrs) == 0 {
		return nil, apperrors.New(apperrors.ConfigMissing, "no nsqd hosts configured")
	}
	producer, err := nsq.NewProducer(nsqdAddrs[rand.IntN(len(nsqdAddrs))], nsqCfg)
	if err != nil {
		return nil, err
	}

	return &Bus{
		cfg:          cfg,
		nsqCfg:       nsqCfg,
		producer:     producer,
		lookupdAddrs: splitHosts(cfg.NSQLookupdHost),
		nsqdAddrs:    nsqdAddrs,
	}, nil
}

// StartConsuming subscribes to the backend topic and feeds the dispatcher,
// preferring lookupd discovery when configured.
func (b *Bus) StartConsuming(d *Dispatcher) error {
	consumer, err := nsq.NewConsumer(b.cfg.BackendTopic, channelName, b.nsqCfg)
	if err != nil {
		return err
	}
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		d.Dispatch(context.Background(), m.Body)
		return nil
	}), b.cfg.MaxInFlight)
	b.consumer = consumer

	if len(b.lookupdAddrs) > 0 {
		slog.Info("Connecting to nsqlookupd", "addrs", b.lookupdAddrs, "topic", b.cfg.BackendTopic)
		return consumer.ConnectToNSQLookupds(b.lookupdAddrs)
	}
	slog.Info("Connecting to nsqd", "addrs", b.nsqdAddrs, "topic", b.cfg.BackendTopic)
	return consumer.ConnectToNSQDs(b.nsqdAddrs)
}

// Stop drains the consumer and stops the producer.
func (b *Bus) Stop() {
	if b.consumer != nil {
		b.consumer.Stop()
		<-b.consumer.StopChan
	}
	b.producer.Stop()
	slog.Info("Bus stopped")
}

// Publish implements Publisher.
func (b *Bus) Publish(topic string, body []byte) error {
	return b.producer.Publish(topic, body)
}

func splitHosts(hosts string) []string {
	var out []string
	for _, h := range strings.Split(hosts, ",") {
		h = strings.TrimSpace(h)
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
