package service_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/service"
)

func TestNormalizeOpenFoodFactsEnergyWithoutUnitIsKJ(t *testing.T) {
	payload := []byte(`{"status":1,"code":"3017620422003","product":{"product_name":"Choco spread","brands":"Acme, Other","nutriments":{"energy_100g":1674,"proteins_100g":6.3,"carbohydrates_100g":57.5,"fat_100g":30.9}}}`)
	recs, err := service.NormalizeFood(service.RawFood{Source: model.SourceBarcode, Payload: payload})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, model.SourceBarcode, r.Source)
	assert.Equal(t, service.ProviderOpenFoodFacts, r.Provider)
	assert.Equal(t, "3017620422003", r.SourceID)
	assert.Equal(t, "openfoodfacts:3017620422003", r.ID)
	assert.Equal(t, "Acme", r.Brand)
	assert.InDelta(t, 1674/4.184, r.Per100g.Kcal, 0.001)
	assert.False(t, r.LowConfidence)
	assert.Empty(t, r.MissingFields)
}

func TestNormalizeOpenFoodFactsKcalFilledWithKJ(t *testing.T) {
	payload := []byte(`{"status":1,"product":{"code":"1","product_name":"Bar","nutriments":{"energy-kcal_100g":1674,"energy-kj_100g":1674,"proteins_100g":1,"carbohydrates_100g":1,"fat_100g":1}}}`)
	recs, err := service.NormalizeFood(service.RawFood{Source: model.SourceBarcode, Provider: "off", Payload: payload})
	require.NoError(t, err)
	assert.InDelta(t, 400.096, recs[0].Per100g.Kcal, 0.001)
}

func TestNormalizeClampsNegativeValuesAndFlagsGaps(t *testing.T) {
	payload := []byte(`{"status":1,"product":{"code":"2","nutriments":{"energy-kcal_100g":-5,"proteins_100g":-1,"fat_100g":3}}}`)
	recs, err := service.NormalizeFood(service.RawFood{Source: model.SourceBarcode, Payload: payload})
	require.NoError(t, err)
	r := recs[0]
	assert.Equal(t, 0.0, r.Per100g.Kcal)
	assert.Equal(t, 0.0, r.Per100g.ProteinG)
	assert.Equal(t, 3.0, r.Per100g.FatG)
	assert.True(t, r.LowConfidence)
	assert.Equal(t, []string{service.FieldName, service.FieldCarbs}, r.MissingFields)
	assert.Equal(t, 0.0, r.AtwaterDeviation)
}

func TestNormalizeOpenFoodFactsStatusZeroIsNotFound(t *testing.T) {
	_, err := service.NormalizeFood(service.RawFood{Source: model.SourceBarcode, Payload: []byte(`{"status":0}`)})
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestNormalizeUSDASearchKeepsRankingAndConvertsKJ(t *testing.T) {
	payload := []byte(`{"foods":[
		{"fdcId":11,"description":"Banana, raw","foodNutrients":[
			{"nutrientNumber":"268","nutrientName":"Energy","unitName":"kJ","value":371},
			{"nutrientNumber":"203","nutrientName":"Protein","unitName":"G","value":1.09},
			{"nutrientNumber":"205","nutrientName":"Carbohydrate, by difference","unitName":"G","value":22.8},
			{"nutrientNumber":"204","nutrientName":"Total lipid (fat)","unitName":"G","value":0.33}]},
		{"fdcId":12,"description":"Banana chips","brandName":"Crunch","servingSize":30,"servingSizeUnit":"g","foodNutrients":[
			{"nutrientNumber":"208","nutrientName":"Energy","unitName":"KCAL","value":519}]}
	]}`)
	recs, err := service.NormalizeFood(service.RawFood{Source: model.SourceTextSearch, Query: "banana", Payload: payload})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "11", recs[0].SourceID)
	assert.Equal(t, "12", recs[1].SourceID)
	assert.InDelta(t, 371/4.184, recs[0].Per100g.Kcal, 0.001)
	assert.Equal(t, "Crunch", recs[1].Brand)
	require.Len(t, recs[1].Servings, 2)
	assert.Equal(t, 30.0, recs[1].Servings[1].Grams)
	assert.True(t, recs[1].LowConfidence)
}

func TestNormalizeUPCItemDBScalesServingTo100g(t *testing.T) {
	payload := []byte(`{"code":"OK","items":[{"upc":"0123","title":"Granola","brand":"Oat Co","size":"30 g","nutrition_facts":{"Calories":"120","Protein":"3g","Total Carbohydrate":"20g","Total Fat":"3g"}}]}`)
	recs, err := service.NormalizeFood(service.RawFood{Source: model.SourceBarcode, Provider: "upc", Payload: payload})
	require.NoError(t, err)
	r := recs[0]
	assert.Equal(t, service.ProviderUPCItemDB, r.Provider)
	assert.InDelta(t, 400, r.Per100g.Kcal, 0.001)
	assert.InDelta(t, 10, r.Per100g.ProteinG, 0.001)
	assert.InDelta(t, 66.667, r.Per100g.CarbsG, 0.001)
}

func TestNormalizePhotoDoesNotReconcileTotals(t *testing.T) {
	payload := []byte("```json\n{\"alimentos\":[{\"nome\":\"rice\",\"quantidade_estimado_g\":150,\"kcal\":300,\"macros\":{\"carbo_g\":60,\"proteina_g\":6,\"gordura_g\":1}},{\"nome\":\"beans\",\"kcal\":250}],\"kcal_total\":700,\"observacoes\":\"lunch\"}\n```")
	a, err := service.NormalizePhoto(payload)
	require.NoError(t, err)
	assert.Equal(t, 700.0, a.KcalTotal)
	assert.Equal(t, 550.0, a.ItemsKcalSum)
	assert.Equal(t, "lunch", a.Notes)
	require.Len(t, a.Items, 2)
	assert.Equal(t, []float64{150, 0}, a.QuantitiesG)
	assert.InDelta(t, 200, a.Items[0].Per100g.Kcal, 0.001)
	assert.Equal(t, model.SourcePhotoAI, a.Items[0].Source)
	assert.Contains(t, a.Items[1].MissingFields, service.FieldQty)

	recs, err := service.NormalizeFood(service.RawFood{Source: model.SourcePhotoAI, Payload: payload})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestNormalizeRejectsUnsupportedSource(t *testing.T) {
	for _, raw := range []service.RawFood{
		{Source: "smell", Payload: []byte(`{}`)},
		{Source: model.SourceBarcode, Provider: "vision", Payload: []byte(`{}`)},
		{Source: model.SourcePhotoAI, Provider: "usda", Payload: []byte(`{}`)},
	} {
		_, err := service.NormalizeFood(raw)
		var unsupported *service.UnsupportedSourceError
		assert.ErrorAs(t, err, &unsupported, "%+v", raw)
	}
}

func TestNormalizeMalformedPayloadKeepsRaw(t *testing.T) {
	cases := []service.RawFood{
		{Source: model.SourceBarcode, Payload: []byte(`not json`)},
		{Source: model.SourceTextSearch, Payload: []byte(`{"hits":[]}`)},
		{Source: model.SourcePhotoAI, Payload: []byte(`{"foo":1}`)},
		{Source: model.SourceCache, Payload: []byte(`42`)},
	}
	for _, raw := range cases {
		_, err := service.NormalizeFood(raw)
		var bad *service.MalformedExternalResponseError
		require.ErrorAs(t, err, &bad, "%s", raw.Source)
		assert.Equal(t, raw.Payload, bad.Raw)
	}
}

func TestNormalizeCacheKeepsProvider(t *testing.T) {
	stored := []model.FoodRecord{{ID: "usda:11", Source: model.SourceTextSearch, SourceID: "11", Provider: "usda", Name: "Banana", Per100g: model.Nutrition{Kcal: 89, SodiumMg: -3}}}
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	recs, err := service.NormalizeFood(service.RawFood{Source: model.SourceCache, Payload: payload})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.SourceCache, recs[0].Source)
	assert.Equal(t, "usda", recs[0].Provider)
	assert.Equal(t, 0.0, recs[0].Per100g.SodiumMg)
}

func TestMergeFoods(t *testing.T) {
	a := []model.FoodRecord{
		{ID: "1", Provider: "usda", SourceID: "11", Name: "first"},
		{ID: "2", Provider: "usda", Name: "no id"},
	}
	b := []model.FoodRecord{
		{ID: "3", Provider: "usda", SourceID: "11", Name: "dup"},
		{ID: "4", Provider: "openfoodfacts", SourceID: "11", Name: "other provider"},
		{ID: "5", Provider: "usda", Name: "no id again"},
	}
	got := service.MergeFoods(a, b)
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"1", "2", "5"}, ids)
}

func TestMergeFoodsSameBarcodeAcrossProviders(t *testing.T) {
	off := []model.FoodRecord{{ID: "off", Provider: "openfoodfacts", SourceID: "737628064502", Name: "Peanut butter"}}
	upc := []model.FoodRecord{{ID: "upc", Provider: "upcitemdb", SourceID: "737628064502", Name: "Peanut Butter 16oz"}}

	got := service.MergeFoods(off, upc)
	require.Len(t, got, 1)
	assert.Equal(t, "off", got[0].ID)
}

func TestResolveServing(t *testing.T) {
	food := model.FoodRecord{Per100g: model.Nutrition{Kcal: 123.4, ProteinG: 7.7, CarbsG: 9.9, FatG: 3.3, FiberG: 1.1, SodiumMg: 42}}
	assert.Equal(t, food.Per100g, service.ResolveServing(food, 100))

	half := service.ResolveServing(food, 50)
	assert.InDelta(t, 61.7, half.Kcal, 1e-9)
	assert.Equal(t, model.Nutrition{}, service.ResolveServing(food, 0))
}
