package odm

import (
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// applyLister folds an options lister into a plain options struct so its
// fields can be copied onto a builder for a sibling operation kind (the
// driver types find/find-one, update-one/update-many and so on separately).
func applyLister[O any](lister options.Lister[O]) (*O, error) {
	args := new(O)
	if lister == nil {
		return args, nil
	}
	for _, fn := range lister.List() {
		if fn == nil {
			continue
		}
		if err := fn(args); err != nil {
			return nil, err
		}
	}
	return args, nil
}

func listerSlice[O any](lister options.Lister[O]) []options.Lister[O] {
	if lister == nil {
		return nil
	}
	return []options.Lister[O]{lister}
}

// Options resolution: the operation value wins, then the document type's
// default provider, then the driver defaults.

func resolveCountOptions[T Doc[T, I], I ID](op Count[T]) options.Lister[options.CountOptions] {
	if optioned, ok := op.(CountOptioned); ok {
		return optioned.CountOptions()
	}
	var zero T
	if provider, ok := any(zero).(CountOptionsProvider); ok {
		return provider.DefaultCountOptions()
	}
	return nil
}

func resolveDistinctOptions[T Doc[T, I], I ID](op Distinct[T]) options.Lister[options.DistinctOptions] {
	if optioned, ok := op.(DistinctOptioned); ok {
		return optioned.DistinctOptions()
	}
	var zero T
	if provider, ok := any(zero).(DistinctOptionsProvider); ok {
		return provider.DefaultDistinctOptions()
	}
	return nil
}

func resolveAggregateOptions[T Doc[T, I], I ID](op Pipeline[T]) options.Lister[options.AggregateOptions] {
	if optioned, ok := op.(PipelineOptioned); ok {
		return optioned.AggregateOptions()
	}
	var zero T
	if provider, ok := any(zero).(AggregateOptionsProvider); ok {
		return provider.DefaultAggregateOptions()
	}
	return nil
}

func resolveFindOptions[T Doc[T, I], I ID](op Query[T]) options.Lister[options.FindOptions] {
	if optioned, ok := op.(QueryOptioned); ok {
		return optioned.FindOptions()
	}
	var zero T
	if provider, ok := any(zero).(QueryOptionsProvider); ok {
		return provider.DefaultFindOptions()
	}
	return nil
}

func resolveUpdateOptions[T Doc[T, I], I ID](op Update[T]) options.Lister[options.UpdateManyOptions] {
	if optioned, ok := op.(UpdateOptioned); ok {
		return optioned.UpdateOptions()
	}
	var zero T
	if provider, ok := any(zero).(UpdateOptionsProvider); ok {
		return provider.DefaultUpdateOptions()
	}
	return nil
}

func resolveUpsertOptions[T Doc[T, I], I ID](op Upsert[T]) options.Lister[options.UpdateManyOptions] {
	if optioned, ok := op.(UpsertOptioned); ok {
		return optioned.UpsertOptions()
	}
	var zero T
	if provider, ok := any(zero).(UpsertOptionsProvider); ok {
		return provider.DefaultUpsertOptions()
	}
	return nil
}

func resolveDeleteOptions[T Doc[T, I], I ID](op Delete[T]) options.Lister[options.DeleteManyOptions] {
	if optioned, ok := op.(DeleteOptioned); ok {
		return optioned.DeleteOptions()
	}
	var zero T
	if provider, ok := any(zero).(DeleteOptionsProvider); ok {
		return provider.DefaultDeleteOptions()
	}
	return nil
}

func resolveFindAndUpdateOptions[T Doc[T, I], I ID](op FindAndUpdate[T]) options.Lister[options.FindOneAndUpdateOptions] {
	if optioned, ok := op.(FindAndUpdateOptioned); ok {
		return optioned.FindOneAndUpdateOptions()
	}
	var zero T
	if provider, ok := any(zero).(FindAndUpdateOptionsProvider); ok {
		return provider.DefaultFindOneAndUpdateOptions()
	}
	return nil
}

// resolveEntityReplaceOptions picks the document type's update or upsert
// defaults for the entity-level replace operations, which have no operation
// value to consult.
func resolveEntityReplaceOptions[T Doc[T, I], I ID](upsert bool) options.Lister[options.UpdateManyOptions] {
	var zero T
	if upsert {
		if provider, ok := any(zero).(UpsertOptionsProvider); ok {
			return provider.DefaultUpsertOptions()
		}
		return nil
	}
	if provider, ok := any(zero).(UpdateOptionsProvider); ok {
		return provider.DefaultUpdateOptions()
	}
	return nil
}

func resolveEntityDeleteOptions[T Doc[T, I], I ID]() options.Lister[options.DeleteManyOptions] {
	var zero T
	if provider, ok := any(zero).(DeleteOptionsProvider); ok {
		return provider.DefaultDeleteOptions()
	}
	return nil
}

func resolveInsertOptions[T Doc[T, I], I ID]() options.Lister[options.InsertManyOptions] {
	var zero T
	if provider, ok := any(zero).(InsertOptionsProvider); ok {
		return provider.DefaultInsertOptions()
	}
	return nil
}

// Conversions between sibling option kinds.

func findOneOptions(lister options.Lister[options.FindOptions]) ([]options.Lister[options.FindOneOptions], error) {
	if lister == nil {
		return nil, nil
	}
	args, err := applyLister(lister)
	if err != nil {
		return nil, err
	}

	builder := options.FindOne()
	if args.AllowPartialResults != nil {
		builder.SetAllowPartialResults(*args.AllowPartialResults)
	}
	if args.Collation != nil {
		builder.SetCollation(args.Collation)
	}
	if args.Comment != nil {
		builder.SetComment(args.Comment)
	}
	if args.Hint != nil {
		builder.SetHint(args.Hint)
	}
	if args.Max != nil {
		builder.SetMax(args.Max)
	}
	if args.Min != nil {
		builder.SetMin(args.Min)
	}
	if args.Projection != nil {
		builder.SetProjection(args.Projection)
	}
	if args.Skip != nil {
		builder.SetSkip(*args.Skip)
	}
	if args.Sort != nil {
		builder.SetSort(args.Sort)
	}
	return []options.Lister[options.FindOneOptions]{builder}, nil
}

// findOneAndDeleteOptions reuses the query's sort and projection; write
// concern does not apply to this kind.
func findOneAndDeleteOptions(lister options.Lister[options.FindOptions]) ([]options.Lister[options.FindOneAndDeleteOptions], error) {
	if lister == nil {
		return nil, nil
	}
	args, err := applyLister(lister)
	if err != nil {
		return nil, err
	}

	builder := options.FindOneAndDelete()
	if args.Collation != nil {
		builder.SetCollation(args.Collation)
	}
	if args.Comment != nil {
		builder.SetComment(args.Comment)
	}
	if args.Hint != nil {
		builder.SetHint(args.Hint)
	}
	if args.Projection != nil {
		builder.SetProjection(args.Projection)
	}
	if args.Sort != nil {
		builder.SetSort(args.Sort)
	}
	return []options.Lister[options.FindOneAndDeleteOptions]{builder}, nil
}

// findOneAndReplaceOptions always asks for the pre-replacement document and
// never upserts, regardless of the query's own options.
func findOneAndReplaceOptions(lister options.Lister[options.FindOptions]) ([]options.Lister[options.FindOneAndReplaceOptions], error) {
	args, err := applyLister(lister)
	if err != nil {
		return nil, err
	}

	builder := options.FindOneAndReplace().
		SetReturnDocument(options.Before).
		SetUpsert(false)
	if args.Collation != nil {
		builder.SetCollation(args.Collation)
	}
	if args.Comment != nil {
		builder.SetComment(args.Comment)
	}
	if args.Hint != nil {
		builder.SetHint(args.Hint)
	}
	if args.Projection != nil {
		builder.SetProjection(args.Projection)
	}
	if args.Sort != nil {
		builder.SetSort(args.Sort)
	}
	return []options.Lister[options.FindOneAndReplaceOptions]{builder}, nil
}

// updateOneOptions narrows update-many options to the update-one kind and
// forces the upsert flag, ignoring whatever the operation's options say.
func updateOneOptions(lister options.Lister[options.UpdateManyOptions], upsert bool) ([]options.Lister[options.UpdateOneOptions], error) {
	args, err := applyLister(lister)
	if err != nil {
		return nil, err
	}

	builder := options.UpdateOne().SetUpsert(upsert)
	if args.ArrayFilters != nil {
		builder.SetArrayFilters(args.ArrayFilters)
	}
	if args.BypassDocumentValidation != nil {
		builder.SetBypassDocumentValidation(*args.BypassDocumentValidation)
	}
	if args.Collation != nil {
		builder.SetCollation(args.Collation)
	}
	if args.Comment != nil {
		builder.SetComment(args.Comment)
	}
	if args.Hint != nil {
		builder.SetHint(args.Hint)
	}
	if args.Let != nil {
		builder.SetLet(args.Let)
	}
	return []options.Lister[options.UpdateOneOptions]{builder}, nil
}

func updateManyOptions(lister options.Lister[options.UpdateManyOptions], upsert bool) []options.Lister[options.UpdateManyOptions] {
	forced := options.UpdateMany().SetUpsert(upsert)
	if lister == nil {
		return []options.Lister[options.UpdateManyOptions]{forced}
	}
	// Listers apply in order, so the forced upsert flag wins.
	return []options.Lister[options.UpdateManyOptions]{lister, forced}
}

func replaceOptions(lister options.Lister[options.UpdateManyOptions], upsert bool) ([]options.Lister[options.ReplaceOptions], error) {
	args, err := applyLister(lister)
	if err != nil {
		return nil, err
	}

	builder := options.Replace().SetUpsert(upsert)
	if args.BypassDocumentValidation != nil {
		builder.SetBypassDocumentValidation(*args.BypassDocumentValidation)
	}
	if args.Collation != nil {
		builder.SetCollation(args.Collation)
	}
	if args.Comment != nil {
		builder.SetComment(args.Comment)
	}
	if args.Hint != nil {
		builder.SetHint(args.Hint)
	}
	if args.Let != nil {
		builder.SetLet(args.Let)
	}
	return []options.Lister[options.ReplaceOptions]{builder}, nil
}

func deleteOneOptions(lister options.Lister[options.DeleteManyOptions]) ([]options.Lister[options.DeleteOneOptions], error) {
	if lister == nil {
		return nil, nil
	}
	args, err := applyLister(lister)
	if err != nil {
		return nil, err
	}

	builder := options.DeleteOne()
	if args.Collation != nil {
		builder.SetCollation(args.Collation)
	}
	if args.Comment != nil {
		builder.SetComment(args.Comment)
	}
	if args.Hint != nil {
		builder.SetHint(args.Hint)
	}
	if args.Let != nil {
		builder.SetLet(args.Let)
	}
	return []options.Lister[options.DeleteOneOptions]{builder}, nil
}

func insertOneOptions(lister options.Lister[options.InsertManyOptions]) ([]options.Lister[options.InsertOneOptions], error) {
	if lister == nil {
		return nil, nil
	}
	args, err := applyLister(lister)
	if err != nil {
		return nil, err
	}

	builder := options.InsertOne()
	if args.BypassDocumentValidation != nil {
		builder.SetBypassDocumentValidation(*args.BypassDocumentValidation)
	}
	if args.Comment != nil {
		builder.SetComment(args.Comment)
	}
	return []options.Lister[options.InsertOneOptions]{builder}, nil
}
