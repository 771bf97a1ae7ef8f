package domain

import "strings"

// RegionKey addresses one paginated cache region.
type RegionKey string

// ItemsCollection extracts the collection id from an item-list region key.
func (k RegionKey) ItemsCollection() (CollectionID, bool) {
	s, ok := strings.CutPrefix(string(k), "items:")
	if !ok {
		return "", false
	}
	return CollectionID(s), true
}

// ItemsRegion is the key for a collection's paginated item list.
func ItemsRegion(id CollectionID) RegionKey {
	return RegionKey("items:" + string(id))
}

// ItemRegion is the key for a single item's detail entry.
func ItemRegion(id ItemID) RegionKey {
	return RegionKey("item:" + string(id))
}

// CollectionsRegion is the key for the collection list with its item counts.
func CollectionsRegion() RegionKey {
	return RegionKey("collections")
}
