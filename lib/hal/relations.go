package hal

import "strings"

// standardRelations are the IANA registered link relation types.
var standardRelations = map[string]struct{}{
	"about": {}, "acl": {}, "alternate": {}, "amphtml": {}, "appendix": {},
	"apple-touch-icon": {}, "apple-touch-startup-image": {}, "archives": {},
	"author": {}, "blocked-by": {}, "bookmark": {}, "canonical": {},
	"chapter": {}, "cite-as": {}, "collection": {}, "contents": {},
	"convertedfrom": {}, "copyright": {}, "create-form": {}, "current": {},
	"describedby": {}, "describes": {}, "disclosure": {}, "dns-prefetch": {},
	"duplicate": {}, "edit": {}, "edit-form": {}, "edit-media": {},
	"enclosure": {}, "external": {}, "first": {}, "glossary": {}, "help": {},
	"hosts": {}, "hub": {}, "icon": {}, "index": {}, "intervalafter": {},
	"intervalbefore": {}, "intervalcontains": {}, "intervaldisjoint": {},
	"intervalduring": {}, "intervalequals": {}, "intervalfinishedby": {},
	"intervalfinishes": {}, "intervalin": {}, "intervalmeets": {},
	"intervalmetby": {}, "intervaloverlappedby": {}, "intervaloverlaps": {},
	"intervalstartedby": {}, "intervalstarts": {}, "item": {}, "last": {},
	"latest-version": {}, "license": {}, "linkset": {}, "lrdd": {},
	"manifest": {}, "mask-icon": {}, "me": {}, "media-feed": {},
	"memento": {}, "micropub": {}, "modulepreload": {}, "monitor": {},
	"monitor-group": {}, "next": {}, "next-archive": {}, "nofollow": {},
	"noopener": {}, "noreferrer": {}, "opener": {}, "openid2.local_id": {},
	"openid2.provider": {}, "original": {}, "p3pv1": {}, "payment": {},
	"pingback": {}, "preconnect": {}, "predecessor-version": {},
	"prefetch": {}, "preload": {}, "prerender": {}, "prev": {},
	"prev-archive": {}, "preview": {}, "previous": {}, "privacy-policy": {},
	"profile": {}, "publication": {}, "related": {}, "replies": {},
	"restconf": {}, "ruleinput": {}, "search": {}, "section": {}, "self": {},
	"service": {}, "service-desc": {}, "service-doc": {}, "service-meta": {},
	"sip-trunking-capability": {}, "sponsored": {}, "start": {},
	"status": {}, "stylesheet": {}, "subsection": {},
	"successor-version": {}, "sunset": {}, "tag": {},
	"terms-of-service": {}, "timegate": {}, "timemap": {}, "type": {},
	"ugc": {}, "up": {}, "version-history": {}, "via": {}, "webmention": {},
	"working-copy": {}, "working-copy-of": {},
}

// IsStandardRelation reports whether rel is an IANA registered relation.
// Relations are case-insensitive; anything with a CURIE prefix is custom.
func IsStandardRelation(rel string) bool {
	if strings.Contains(rel, ":") {
		return false
	}
	_, ok := standardRelations[strings.ToLower(rel)]
	return ok
}

// CompareRelations orders relations for output: self first, then standard
// relations alphabetically, then custom relations alphabetically.
func CompareRelations(a, b string) int {
	if a == b {
		return 0
	}
	if a == RelSelf {
		return -1
	}
	if b == RelSelf {
		return 1
	}
	sa, sb := IsStandardRelation(a), IsStandardRelation(b)
	if sa != sb {
		if sa {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
