package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"tender-agent-backend/config"
	"tender-agent-backend/service/ingest"

	"github.com/apache/rocketmq-client-go/v2"
	c "github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/apache/rocketmq-client-go/v2/rlog"
	"github.com/avast/retry-go/v4"
)

const (
	TopicDocumentIngest = "topic_document_ingest"
	TagDocument         = "tag_document"

	TopicResponseCheck = "topic_response_check"
	TagCheck           = "tag_check"

	consumeGroupIngest = "cg_document_ingest"
	consumeGroupCheck  = "cg_response_check"

	sendMessageAttempts  = 3
	maxReconsumeTimes    = 5
	consumeGoroutineNums = 10
)

var (
	// 全局生产者
	producerInstance rocketmq.Producer

	// 文档入库消费者
	consumerIngest rocketmq.PushConsumer

	// 响应检查消费者
	consumerCheck rocketmq.PushConsumer

	// 消息处理器表
	handlers = make(map[string]MessageHandler)
)

type MessageHandler func(context.Context, *primitive.MessageExt) error

type Message struct {
	Topic   string
	Tag     string
	Payload any
}

func init() {
	// 设置RocketMQ客户端（使用rlog）的日志级别
	rlog.SetLogLevel("warn")
}

func newConsumer(group string) (rocketmq.PushConsumer, error) {
	return rocketmq.NewPushConsumer(
		c.WithNameServer(config.Cfg.MQ.NameServer),
		c.WithGroupName(group),
		c.WithConsumerModel(c.Clustering),
		c.WithConsumeFromWhere(c.ConsumeFromLastOffset),
		c.WithMaxReconsumeTimes(maxReconsumeTimes),
		c.WithConsumeGoroutineNums(consumeGoroutineNums),
	)
}

// Run 创建生产者与消费者并启动，需在配置加载之后调用
func Run() error {
	var err error
	consumerIngest, err = newConsumer(consumeGroupIngest)
	if err != nil {
		return fmt.Errorf("failed to create ingest consumer: %v", err)
	}
	consumerCheck, err = newConsumer(consumeGroupCheck)
	if err != nil {
		return fmt.Errorf("failed to create check consumer: %v", err)
	}

	producerInstance, err = rocketmq.NewProducer(
		producer.WithNameServer(config.Cfg.MQ.NameServer),
	)
	if err != nil {
		return fmt.Errorf("failed to create producer: %v", err)
	}

	// 注册消息处理器
	if err := registerHandler(consumerIngest, TopicDocumentIngest, TagDocument, ingest.HandleDocumentMessage); err != nil {
		return fmt.Errorf("failed to register handler, topic: %s, tag: %s, err: %v", TopicDocumentIngest, TagDocument, err)
	}
	if err := registerHandler(consumerCheck, TopicResponseCheck, TagCheck, ingest.HandleCheckMessage); err != nil {
		return fmt.Errorf("failed to register handler, topic: %s, tag: %s, err: %v", TopicResponseCheck, TagCheck, err)
	}

	if err := producerInstance.Start(); err != nil {
		return fmt.Errorf("failed to start producer: %v", err)
	}

	if err := consumerIngest.Start(); err != nil {
		return fmt.Errorf("failed to start ingest consumer: %v", err)
	}
	if err := consumerCheck.Start(); err != nil {
		return fmt.Errorf("failed to start check consumer: %v", err)
	}
	return nil
}

// registerHandler 注册消息处理器
func registerHandler(consumer rocketmq.PushConsumer, topic string, tag string, handler MessageHandler) error {
	handlers[topic] = handler

	selector := c.MessageSelector{}
	if tag != "" {
		selector = c.MessageSelector{
			Type:       c.TAG,
			Expression: tag,
		}
	}

	err := consumer.Subscribe(topic, selector, func(ctx context.Context, messages ...*primitive.MessageExt) (c.ConsumeResult, error) {
		for _, msg := range messages {
			h := handlers[msg.Topic]
			if h == nil {
				slog.Warn("No message handler found for topic", "topic", msg.Topic)
				continue
			}

			if err := h(ctx, msg); err != nil {
				slog.Error("Failed to process message",
					"topic", msg.Topic,
					"msg_id", msg.MsgId,
					"error", err)
				return c.ConsumeRetryLater, err
			}
		}
		return c.ConsumeSuccess, nil
	})

	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %v", topic, err)
	}

	return nil
}

// SendMessage 向MQ发送消息
func SendMessage(ctx context.Context, message *Message) error {
	payloadJSON, err := json.Marshal(message.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	msg := primitive.NewMessage(message.Topic, payloadJSON)
	if message.Tag != "" {
		msg = msg.WithTag(message.Tag)
	}

	err = retry.Do(
		func() error {
			_, err := producerInstance.SendSync(ctx, msg)
			return err
		},
		retry.Attempts(sendMessageAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying to send message",
				"attempt", n+1,
				"topic", msg.Topic,
				"err", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s after retries: %v", msg.Topic, err)
	}

	return nil
}

// Shutdown 关闭MQ服务
func Shutdown() {
	if producerInstance != nil {
		producerInstance.Shutdown()
	}
	if consumerIngest != nil {
		consumerIngest.Shutdown()
	}
	if consumerCheck != nil {
		consumerCheck.Shutdown()
	}
}
