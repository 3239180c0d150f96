package aedregistry

import "github.com/nordatlas/atlas-cli/internal/model"

// Normalize converts a raw search response into a canonical feature
// collection. Assets missing either coordinate are skipped silently — a
// data-quality filter, not an error. Registry records arrive as
// (lat, lon) field pairs and are written out in internal (lon, lat) order
// here; this is the single transposition point for this source.
func Normalize(resp *SearchResponse, sourceID string) *model.FeatureCollection {
	fc := model.NewFeatureCollection()
	if resp == nil {
		fc.SetMeta(model.MetaTotalCount, 0)
		return fc
	}

	for _, a := range resp.Assets {
		if a.SiteLatitude == nil || a.SiteLongitude == nil {
			continue
		}

		props := model.Properties{}
		setCoerced(props, "asset_id", a.AssetID)
		props.SetString("asset_guid", a.AssetGUID)
		props.SetString("site_name", a.SiteName)
		props.SetString("site_address", a.SiteAddress)
		props.SetString("site_post_code", a.SitePostCode)
		props.SetString("site_post_area", a.SitePostArea)
		setCoerced(props, "site_floor_number", a.SiteFloorNumber)
		props.SetString("site_description", a.SiteDescription)
		props.SetString("site_access_info", a.SiteAccessInfo)
		props.SetString("asset_type_name", a.AssetTypeName)
		props.SetString("serial_number", a.SerialNumber)
		props.SetBool("is_active", a.Active == "Y")
		props.SetBool("is_open", a.IsOpen == "Y")
		props.SetString("asset_status", a.AssetStatus)
		props.SetString("created_date", a.CreatedDate)
		props.SetString("modified_date", a.ModifiedDate)

		// Errors here only occur for non-finite coordinates; those records
		// are dropped like any other malformed feature.
		_ = fc.Add(model.Feature{
			GeometryType: model.GeometryPoint,
			Coordinates:  []model.Coordinate{{Lon: *a.SiteLongitude, Lat: *a.SiteLatitude}},
			Properties:   props,
			SourceID:     sourceID,
		})
	}

	fc.SetMeta(model.MetaTotalCount, fc.Len())
	if resp.APIMessage != "" {
		fc.SetMeta(model.MetaAPIMessage, resp.APIMessage)
	}
	if v, ok := model.Coerce(resp.APICurrentUserID); ok && v != nil {
		fc.SetMeta(model.MetaCurrentUserID, v)
	}
	return fc
}

// setCoerced stores v under key if it coerces into the scalar union, and an
// explicit null otherwise.
func setCoerced(p model.Properties, key string, v any) {
	if c, ok := model.Coerce(v); ok {
		p[key] = c
		return
	}
	p.SetNull(key)
}
