package controller

import (
	"fmt"
	"sync"
	"tender-agent-backend/config"
	"tender-agent-backend/service/docparse"
	"tender-agent-backend/service/embedding"
	"tender-agent-backend/service/extractor"
	"tender-agent-backend/service/filter"
	"tender-agent-backend/service/hitl"
	"tender-agent-backend/service/infoextract"
	"tender-agent-backend/service/llmclient"
	"tender-agent-backend/service/responsecheck"
	"tender-agent-backend/service/semanticsearch"
	"tender-agent-backend/service/vectorstore"
)

// 控制器层共享的服务单例，首次使用时构造
var (
	servicesOnce sync.Once
	servicesErr  error

	parserInstance *docparse.Parser
	hitlPipeline   *hitl.Pipeline
	infoExtractor  *infoextract.Extractor
	checkRunner    *responsecheck.TaskRunner
	embedService   *embedding.Service
	vectorStore    *vectorstore.Store
	searchEngine   *semanticsearch.Engine

	filterClient  *llmclient.Client
	extractClient *llmclient.Client
	composeClient *llmclient.Client
)

func services() error {
	servicesOnce.Do(func() {
		filterClient, servicesErr = llmclient.New(config.Cfg.Model.FilterModel)
		if servicesErr != nil {
			servicesErr = fmt.Errorf("failed to create filter client: %v", servicesErr)
			return
		}
		extractClient, servicesErr = llmclient.New(config.Cfg.Model.ExtractModel)
		if servicesErr != nil {
			servicesErr = fmt.Errorf("failed to create extract client: %v", servicesErr)
			return
		}
		composeClient, servicesErr = llmclient.New(config.Cfg.Model.ComposeModel)
		if servicesErr != nil {
			servicesErr = fmt.Errorf("failed to create compose client: %v", servicesErr)
			return
		}

		embedService, servicesErr = embedding.New()
		if servicesErr != nil {
			servicesErr = fmt.Errorf("failed to create embedding service: %v", servicesErr)
			return
		}
		vectorStore, servicesErr = vectorstore.Open(
			config.Cfg.Vector.Dir, config.Cfg.Vector.IndexType, config.Cfg.Embedding.Dim)
		if servicesErr != nil {
			servicesErr = fmt.Errorf("failed to open vector store: %v", servicesErr)
			return
		}
		searchEngine = semanticsearch.New(embedService, vectorStore)

		parserInstance = docparse.NewParser(nil)
		infoExtractor = infoextract.NewExtractor(extractClient)
		hitlPipeline = hitl.NewPipeline(
			parserInstance,
			filter.NewAgent(filterClient),
			extractor.NewAgent(extractClient),
			infoExtractor,
			config.Cfg.Parse.CostPerKiloWords,
		)
		checkRunner = responsecheck.NewTaskRunner(parserInstance, responsecheck.NewChecker(extractClient))
	})
	return servicesErr
}
