// Package dyndb fornece uma abstração genérica e fortemente tipada sobre uma
// tabela chave-valor ordenada com índices secundários, no formato do
// DynamoDB.
//
// Visão Geral:
// O pacote oferece a interface `Store[T]`, que simplifica CRUD, escritas
// condicionais e Batch sem lidar com os tipos de baixo nível do SDK
// (AttributeValue, expressões etc.). O `Store[T]` opera sobre um `Table`:
//
//   - NewDynamoTable: DynamoDB via aws-sdk-go-v2 e o pacote `expression`.
//   - NewMemoryTable: tabela em memória com GSIs, paginação e stream de
//     mudanças, usada no runtime local e nos testes.
//
// Funcionalidades Principais:
//   - CRUD Tipado: `Get`, `Put`, `Update`, `Delete`.
//   - Escrita Condicional: `IfExists`, `IfNotExists`, `WithCondition`; a
//     falha do predicado é `ErrConditionFailed`, distinta de erros de
//     transporte.
//   - Contadores: `NewUpdate().Add("formCount", 1)` gera
//     `if_not_exists(formCount, 0) + 1` no servidor.
//   - Batch com Retry: `BatchWrite` reenvia só os itens não processados, com
//     backoff exponencial limitado; o resto volta em `*PartialWriteError`.
//   - Builder Fluente: `Query().KeyEqual(...).KeyBeginsWith(...)` com `Exec`
//     (uma página), `All` (iter.Seq2 preguiçoso) e `Collect` (tudo, limitado
//     por `WithMaxPages`, sinalizando `ErrTruncated`).
//
// Exemplo:
//
//	table := dyndb.NewDynamoTable(dynamodb.NewFromConfig(awsCfg), dyndb.TableConfig{
//		TableName: "form-builder",
//		HashKey:   "pk",
//		SortKey:   "sk",
//		Indexes:   []dyndb.GlobalSecondaryIndex{{Name: "GSI1", HashKey: "pk1", SortKey: "sk1"}},
//	})
//	forms := dyndb.New[Form](table)
//
//	err := forms.Update(ctx, "w#123", "f#456",
//		dyndb.NewUpdate().Set("name", "Survey"), dyndb.IfExists())
//	if errors.Is(err, dyndb.ErrConditionFailed) { /* ... */ }
//
//	all, err := forms.Query().
//		KeyEqual("pk", "w#123").
//		KeyBeginsWith("sk", "f#").
//		Collect(ctx)
package dyndb
