package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/Venomous-pie/knot-and-bloom-sub000/configs"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/adapter/cache"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/adapter/gateway"
	adapterhttp "github.com/Venomous-pie/knot-and-bloom-sub000/internal/adapter/http"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/adapter/http/middleware"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/adapter/kafka"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/adapter/queue"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/adapter/repo"
	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/logging"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logging.Init(cfg.App.Name, cfg.App.LogFile)
	log := logging.New("app")

	// init database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, err
	}
	if err := repo.RunMigrations(db); err != nil {
		return nil, nil, err
	}
	log.Info("checkout-api: starting up")

	// init redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, nil, err
	}

	// init rabbitmq audit pipeline
	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	audit, err := queue.NewAuditProducer(ch)
	if err != nil {
		return nil, nil, err
	}

	// infra
	sessionRepo := repo.NewMySQLSessionRepo(db)
	paymentRepo := repo.NewMySQLPaymentRepo(db)
	orderRepo := repo.NewMySQLOrderRepo(db)
	cartRepo := repo.NewMySQLCartRepo(db)
	auditRepo := repo.NewMySQLAuditRepo(db)
	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	statusCache := cache.NewRedisStatusCache(rdb, cfg.Cache.TTL)
	gw := gateway.NewMockGateway(gateway.WithLatency(cfg.Checkout.GatewayLatency))

	// drain audit events into mysql
	setupAuditConsumer(ch, auditRepo)

	// settlement feed from the gateway
	setupSettlementConsumer(cfg, paymentRepo)

	checkout := usecase.NewCheckout(usecase.Deps{
		Sessions:      sessionRepo,
		Payments:      paymentRepo,
		Orders:        orderRepo,
		Committer:     orderRepo,
		Cart:          cartRepo,
		Catalog:       cartRepo,
		Gateway:       gw,
		Audit:         audit,
		Idem:          idem,
		Cache:         statusCache,
		ChargeTimeout: cfg.Checkout.ChargeTimeout,
	})

	h := adapterhttp.NewCheckoutHandler(checkout)
	th := adapterhttp.NewTokenHandler(cfg)
	authz := middleware.NewAuthz(cfg)
	router := adapterhttp.NewRouter(h, th, authz)

	cleanup := func() {
		_ = db.Close()
		_ = rdb.Close()
		_ = ch.Close()
		_ = conn.Close()
	}

	return &App{Router: router}, cleanup, nil
}

func setupAuditConsumer(ch *amqp091.Channel, auditRepo *repo.MySQLAuditRepo) {
	recorder := queue.NewAuditRecorder(auditRepo)

	router := queue.NewRouter(ch, queue.WithPrefetch(50))
	router.Register("checkout.audit.q", queue.JSONHandler[domain.AuditEvent]{HandleFunc: recorder.HandleEvent})

	if err := router.Start(); err != nil {
		panic(err)
	}
}

func setupSettlementConsumer(cfg configs.Config, payments usecase.PaymentRepo) {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		panic(err)
	}

	h := kafka.NewPaymentSettledHandler(payments)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TopicSettlements}, h.Handle)

	go func() {
		if err := consumer.Start(context.Background()); err != nil {
			logging.New("app").Error("settlement consumer stopped", "err", err)
		}
	}()
}
