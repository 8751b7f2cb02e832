package discovery

import (
	"context"
	"log/slog"
	"net"
	"sort"
	"strings"

	"github.com/enbility/zeroconf/v3"
)

// BrowseFunc performs one mDNS browse, sending discovered entries on
// entries and disappearing entries on removed until ctx ends. The default
// uses zeroconf; set this in tests to feed canned entries.
type BrowseFunc func(ctx context.Context, service string, entries, removed chan *zeroconf.ServiceEntry) error

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface specifies which network interface to browse on.
	// Empty string means all interfaces.
	Interface string

	// Logger receives operational log records. nil disables logging.
	Logger *slog.Logger

	// Browse overrides the mDNS browse call. nil uses zeroconf.
	Browse BrowseFunc
}

// Browser finds processors advertised as ServiceType.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a browser. Each Browse/Find/FindAll call runs its own
// browse bound to the caller's context.
func NewBrowser(config BrowserConfig) *Browser {
	b := &Browser{config: config}
	if b.config.Browse == nil {
		b.config.Browse = b.zeroconfBrowse
	}
	return b
}

// zeroconfBrowse is the default BrowseFunc.
func (b *Browser) zeroconfBrowse(ctx context.Context, service string, entries, removed chan *zeroconf.ServiceEntry) error {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		if iface, err := net.InterfaceByName(b.config.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return zeroconf.Browse(ctx, service, Domain, entries, removed, opts...)
}

// Browse streams processors as they appear until ctx ends. Entries are
// aggregated by instance name; a processor seen on several interfaces is
// emitted once. The channel closes when browsing stops.
func (b *Browser) Browse(ctx context.Context) (<-chan *DiscoveredProcessor, error) {
	out := make(chan *DiscoveredProcessor)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		found := make(map[string]*DiscoveredProcessor)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				added := track(found, entry)
				if added == nil {
					continue
				}
				// Emit a snapshot so later address merges do not
				// race with the consumer
				snapshot := *added
				snapshot.Addresses = append([]string(nil), added.Addresses...)
				select {
				case out <- &snapshot:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
				untrack(found, entry)

			case <-ctx.Done():
				return
			}
		}
	}()

	go b.runBrowse(ctx, entries, removed)

	return out, nil
}

// Find resolves one processor by instance name, ignoring case. It returns
// ctx.Err() when the context ends first.
func (b *Browser) Find(ctx context.Context, name string) (*DiscoveredProcessor, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case svc, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if strings.EqualFold(svc.InstanceName, name) {
				return svc, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// FindAll collects every processor seen until ctx ends and returns them
// sorted by instance name. Running into the context deadline is the normal
// way to finish, so it is not reported as an error.
func (b *Browser) FindAll(ctx context.Context) ([]*DiscoveredProcessor, error) {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go b.runBrowse(ctx, entries, removed)

	found := make(map[string]*DiscoveredProcessor)
	collect := func() []*DiscoveredProcessor {
		result := make([]*DiscoveredProcessor, 0, len(found))
		for _, svc := range found {
			result = append(result, svc)
		}
		sort.Slice(result, func(i, j int) bool {
			return result[i].InstanceName < result[j].InstanceName
		})
		return result
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return collect(), nil
			}
			track(found, entry)

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			untrack(found, entry)

		case <-ctx.Done():
			return collect(), nil
		}
	}
}

// runBrowse runs the configured browse call, logging failures.
func (b *Browser) runBrowse(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry) {
	if err := b.config.Browse(ctx, ServiceType, entries, removed); err != nil && ctx.Err() == nil {
		if b.config.Logger != nil {
			b.config.Logger.Warn("mdns browse failed", "service", ServiceType, "error", err)
		}
	}
}

// entryToProcessor converts a zeroconf entry, returning nil for entries
// whose TXT records do not describe a usable processor.
func entryToProcessor(entry *zeroconf.ServiceEntry) *DiscoveredProcessor {
	txt := StringsToTXTRecords(entry.Text)
	info, err := DecodeTXT(txt)
	if err != nil {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &DiscoveredProcessor{
		InstanceName:    entry.Instance,
		Host:            entry.HostName,
		Port:            entry.Port,
		Addresses:       addrs,
		Model:           info.Model,
		ZoneCount:       info.ZoneCount,
		SerialNumber:    info.SerialNumber,
		FirmwareVersion: info.FirmwareVersion,
	}
}

// track merges an entry into the set keyed by instance name. It returns
// the processor when the entry is new, nil when it only extended an
// existing one or was unusable.
func track(found map[string]*DiscoveredProcessor, entry *zeroconf.ServiceEntry) *DiscoveredProcessor {
	svc := entryToProcessor(entry)
	if svc == nil {
		return nil
	}

	if existing, ok := found[svc.InstanceName]; ok {
		existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
		return nil
	}

	found[svc.InstanceName] = svc
	return svc
}

// untrack removes the entry's addresses from the set, dropping the
// processor entirely when no address remains.
func untrack(found map[string]*DiscoveredProcessor, entry *zeroconf.ServiceEntry) {
	existing, ok := found[entry.Instance]
	if !ok {
		return
	}
	existing.Addresses = removeAddresses(existing.Addresses, entry)
	if len(existing.Addresses) == 0 {
		delete(found, entry.Instance)
	}
}

// mergeAddresses adds new addresses to the existing list, avoiding
// duplicates.
func mergeAddresses(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range extra {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the entry's addresses from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
