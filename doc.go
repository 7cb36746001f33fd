// Package formbuilder é o backend de um produto SaaS multi-tenant de
// formulários: cadastro de usuários, organizações, workspaces, formulários,
// campos, respostas e convites de membros.
//
// Visão Geral:
// Toda a persistência fica numa única tabela chave-valor ordenada (DynamoDB)
// com um índice secundário esparso. Cada comando é um handler sem estado que
// valida a entrada, autoriza o chamador, grava na tabela e, quando for o caso,
// dispara um e-mail. Contadores, campos duplicados e remoções em cascata são
// mantidos de forma eventual por reatores que consomem o stream da tabela.
//
// Sub-Pacotes Principais:
//
// 1. keyspace:
//   - Codificação e decodificação das chaves (pk/sk e pk1/sk1) por tipo de entidade.
//   - Prefixos para consultas "todos os filhos de um pai".
//
// 2. dyndb:
//   - Store[T] tipado sobre DynamoDB ou sobre a tabela em memória.
//   - Escritas condicionais, contadores atômicos, Batch com retry e paginação.
//
// 3. pkg/authz, pkg/handler, pkg/reactor:
//   - Regras de autorização em CEL, comandos e reatores de propagação.
//
// 4. envloader, pkg/config, pkg/logger, pkg/observability:
//   - Configuração por variáveis de ambiente, logs zerolog e métricas Datadog.
//
// Binários:
//
//	cmd/api      API HTTP (API Gateway v2 ou servidor local)
//	cmd/stream   consumidor do DynamoDB Stream
//	cmd/cognito  gatilhos do Cognito (post-confirmation e custom-message)
//	cmd/redrive  reprocessamento da fila de dead-letter dos reatores
//
// Exemplo de execução local, com tabela em memória:
//
//	RUNTIME=local PORT=8080 FORM_BUILDER_DATA_TABLE=form-builder go run ./cmd/api
package formbuilder
