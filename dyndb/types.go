// dyndb/types.go
package dyndb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	// ErrNotFound – erro padrão quando o item não existe
	ErrNotFound = errors.New("dyndb: item not found")
	// ErrConditionFailed – o predicado da escrita condicional não foi satisfeito
	ErrConditionFailed = errors.New("dyndb: condition failed")
	// ErrTruncated – a drenagem da paginação parou no limite de páginas
	ErrTruncated = errors.New("dyndb: result truncated")
	// ErrPartialWrite – sobraram itens não processados após todas as tentativas
	ErrPartialWrite = errors.New("dyndb: batch write partially applied")
)

// Item é a representação crua de uma linha.
type Item = map[string]types.AttributeValue

// DynamoDBClient interface para abstrair o cliente DynamoDB
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// GlobalSecondaryIndex para GSIs
type GlobalSecondaryIndex struct {
	Name    string `env:"DYNAMODB_GSI_NAME"`
	HashKey string `env:"DYNAMODB_GSI_HASH_KEY"`
	SortKey string `env:"DYNAMODB_GSI_SORT_KEY"`
}

// TableConfig: esquema da tabela
type TableConfig struct {
	TableName string `env:"DYNAMODB_TABLE_NAME"`
	HashKey   string `env:"DYNAMODB_HASH_KEY" envDefault:"pk"`
	SortKey   string `env:"DYNAMODB_SORT_KEY" envDefault:"sk"`
	Indexes   []GlobalSecondaryIndex
}

func (c TableConfig) index(name string) (GlobalSecondaryIndex, error) {
	for _, idx := range c.Indexes {
		if idx.Name == name {
			return idx, nil
		}
	}
	return GlobalSecondaryIndex{}, fmt.Errorf("dyndb: unknown index %q on table %s", name, c.TableName)
}

// Table é o backend de armazenamento sobre o qual o Store[T] opera. As
// implementações são o DynamoDB (NewDynamoTable) e a tabela em memória
// (NewMemoryTable).
type Table interface {
	Config() TableConfig
	GetItem(ctx context.Context, key Item) (Item, error)
	PutItem(ctx context.Context, item Item, cond *Condition) error
	UpdateItem(ctx context.Context, key Item, upd Update, cond *Condition) error
	DeleteItem(ctx context.Context, key Item, cond *Condition) error
	Query(ctx context.Context, q QuerySpec) (Page, error)
	// BatchWriteItem aplica até 25 requisições e devolve as não processadas.
	BatchWriteItem(ctx context.Context, reqs []types.WriteRequest) ([]types.WriteRequest, error)
}

// KeyOp é o operador aplicado à chave de ordenação numa Query.
type KeyOp int

const (
	KeyOpNone KeyOp = iota
	KeyOpEqual
	KeyOpBeginsWith
)

// QuerySpec descreve uma página de consulta por partição.
type QuerySpec struct {
	IndexName string
	HashKey   string
	HashValue any
	SortKey   string
	SortOp    KeyOp
	SortValue any
	Filters   []Condition
	Limit     int32
	Forward   bool
	StartKey  Item
}

// Page é o resultado de uma chamada de Query.
type Page struct {
	Items   []Item
	LastKey Item
}

// PartialWriteError lista as requisições que continuaram sem processamento
// depois do número máximo de tentativas.
type PartialWriteError struct {
	Unprocessed []types.WriteRequest
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("dyndb: %d write requests left unprocessed", len(e.Unprocessed))
}

func (e *PartialWriteError) Unwrap() error {
	return ErrPartialWrite
}

// EventName identifica o tipo de mudança de um registro do stream.
type EventName string

const (
	EventInsert EventName = "INSERT"
	EventModify EventName = "MODIFY"
	EventRemove EventName = "REMOVE"
)

// StreamRecord é um evento de mudança de linha com as imagens antiga e nova.
type StreamRecord struct {
	EventID   string
	EventName EventName
	Keys      Item
	OldImage  Item
	NewImage  Item
}
