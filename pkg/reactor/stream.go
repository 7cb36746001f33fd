package reactor

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/dyndb"
)

// HandleEvent é o handler do Lambda ligado ao DynamoDB Stream. Registros que
// falham e não vão para a DLQ voltam como BatchItemFailures, para que o
// Lambda os entregue de novo.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var resp events.DynamoDBEventResponse

	seq := make(map[string]string, len(ev.Records))
	records := make([]dyndb.StreamRecord, 0, len(ev.Records))
	for _, r := range ev.Records {
		rec, err := FromEvent(r)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("event_id", r.EventID).Msg("registro do stream inválido")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.DynamoDBBatchItemFailure{
				ItemIdentifier: r.Change.SequenceNumber,
			})
			continue
		}
		seq[rec.EventID] = r.Change.SequenceNumber
		records = append(records, rec)
	}

	for _, rec := range d.Process(ctx, records) {
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.DynamoDBBatchItemFailure{
			ItemIdentifier: seq[rec.EventID],
		})
	}
	return resp, nil
}

// FromEvent converte o registro no formato do Lambda.
func FromEvent(r events.DynamoDBEventRecord) (dyndb.StreamRecord, error) {
	rec := dyndb.StreamRecord{
		EventID:   r.EventID,
		EventName: dyndb.EventName(r.EventName),
	}
	switch rec.EventName {
	case dyndb.EventInsert, dyndb.EventModify, dyndb.EventRemove:
	default:
		return rec, fmt.Errorf("evento desconhecido %q", r.EventName)
	}

	var err error
	if rec.Keys, err = fromEventItem(r.Change.Keys); err != nil {
		return rec, fmt.Errorf("keys: %w", err)
	}
	if rec.OldImage, err = fromEventItem(r.Change.OldImage); err != nil {
		return rec, fmt.Errorf("old image: %w", err)
	}
	if rec.NewImage, err = fromEventItem(r.Change.NewImage); err != nil {
		return rec, fmt.Errorf("new image: %w", err)
	}
	return rec, nil
}

// ToEvent faz o caminho inverso de FromEvent; é o formato publicado na DLQ.
func ToEvent(rec dyndb.StreamRecord) (events.DynamoDBEventRecord, error) {
	out := events.DynamoDBEventRecord{
		EventID:     rec.EventID,
		EventName:   string(rec.EventName),
		EventSource: "aws:dynamodb",
	}

	var err error
	if out.Change.Keys, err = toEventItem(rec.Keys); err != nil {
		return out, fmt.Errorf("keys: %w", err)
	}
	if out.Change.OldImage, err = toEventItem(rec.OldImage); err != nil {
		return out, fmt.Errorf("old image: %w", err)
	}
	if out.Change.NewImage, err = toEventItem(rec.NewImage); err != nil {
		return out, fmt.Errorf("new image: %w", err)
	}
	return out, nil
}

func fromEventItem(in map[string]events.DynamoDBAttributeValue) (dyndb.Item, error) {
	if in == nil {
		return nil, nil
	}
	out := make(dyndb.Item, len(in))
	for k, v := range in {
		av, err := fromEventValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func fromEventValue(v events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}, nil
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, 0, len(list))
		for _, item := range list {
			av, err := fromEventValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, av)
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case events.DataTypeMap:
		m, err := fromEventItem(v.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("tipo de atributo não suportado %v", v.DataType())
}

func toEventItem(in dyndb.Item) (map[string]events.DynamoDBAttributeValue, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]events.DynamoDBAttributeValue, len(in))
	for k, v := range in {
		ev, err := toEventValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = ev
	}
	return out, nil
}

func toEventValue(av types.AttributeValue) (events.DynamoDBAttributeValue, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return events.NewStringAttribute(v.Value), nil
	case *types.AttributeValueMemberN:
		return events.NewNumberAttribute(v.Value), nil
	case *types.AttributeValueMemberBOOL:
		return events.NewBooleanAttribute(v.Value), nil
	case *types.AttributeValueMemberNULL:
		return events.NewNullAttribute(), nil
	case *types.AttributeValueMemberB:
		return events.NewBinaryAttribute(v.Value), nil
	case *types.AttributeValueMemberSS:
		return events.NewStringSetAttribute(v.Value), nil
	case *types.AttributeValueMemberNS:
		return events.NewNumberSetAttribute(v.Value), nil
	case *types.AttributeValueMemberBS:
		return events.NewBinarySetAttribute(v.Value), nil
	case *types.AttributeValueMemberL:
		list := make([]events.DynamoDBAttributeValue, 0, len(v.Value))
		for _, item := range v.Value {
			ev, err := toEventValue(item)
			if err != nil {
				return events.DynamoDBAttributeValue{}, err
			}
			list = append(list, ev)
		}
		return events.NewListAttribute(list), nil
	case *types.AttributeValueMemberM:
		m, err := toEventItem(v.Value)
		if err != nil {
			return events.DynamoDBAttributeValue{}, err
		}
		return events.NewMapAttribute(m), nil
	}
	return events.DynamoDBAttributeValue{}, fmt.Errorf("tipo de atributo não suportado %T", av)
}
