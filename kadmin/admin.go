// Package kadmin is the admin façade described in spec.md §4.9: thin
// wrappers over the admin-category kproto APIs, shaped after kadm's
// call surface (CreateTopic, ListTopics, DescribeConfigs, ...) without
// depending on franz-go.
package kadmin

import (
	"context"
	"fmt"

	"github.com/knactor/kafka"
	"github.com/knactor/kafka/kerr"
	"github.com/knactor/kafka/kproto"
)

// Admin wraps a *kafka.Client to issue cluster-management RPCs. It
// shares the client's connection pool, metadata cache, and hooks; it
// owns no state of its own.
type Admin struct {
	client *kafka.Client
}

// NewAdmin builds an Admin over an already-constructed Client.
func NewAdmin(client *kafka.Client) *Admin {
	return &Admin{client: client}
}

// TopicSpec describes one topic to create.
type TopicSpec struct {
	Name              string
	NumPartitions     int32
	ReplicationFactor int16
	Configs           map[string]string
}

// CreateTopics creates topics in a single CreateTopics RPC.
func (a *Admin) CreateTopics(ctx context.Context, timeout int32, specs ...TopicSpec) ([]kproto.CreatableTopicResult, error) {
	req := &kproto.CreateTopicsRequest{TimeoutMs: timeout}
	for _, s := range specs {
		ct := kproto.CreatableTopic{
			Name:              s.Name,
			NumPartitions:     s.NumPartitions,
			ReplicationFactor: s.ReplicationFactor,
		}
		for k, v := range s.Configs {
			val := v
			ct.Configs = append(ct.Configs, kproto.CreatableTopicConfig{Name: k, Value: &val})
		}
		req.Topics = append(req.Topics, ct)
	}
	req.SetVersion(5)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return nil, err
	}
	cr := resp.(*kproto.CreateTopicsResponse)
	for _, t := range cr.Topics {
		if pe := kerr.ErrorForCode(t.ErrorCode); pe != nil {
			return cr.Topics, kerr.Wrap(kerr.KindProtocol, "CreateTopics "+t.Name, pe)
		}
	}
	return cr.Topics, nil
}

// CreateTopic is a single-topic convenience wrapper over CreateTopics.
func (a *Admin) CreateTopic(ctx context.Context, name string, partitions int32, replication int16) error {
	_, err := a.CreateTopics(ctx, 30000, TopicSpec{Name: name, NumPartitions: partitions, ReplicationFactor: replication})
	return err
}

// DeleteTopics deletes topics by name.
func (a *Admin) DeleteTopics(ctx context.Context, timeout int32, names ...string) ([]kproto.DeletableTopicResult, error) {
	req := &kproto.DeleteTopicsRequest{TopicNames: names, TimeoutMs: timeout}
	req.SetVersion(4)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return nil, err
	}
	dr := resp.(*kproto.DeleteTopicsResponse)
	for _, t := range dr.Responses {
		if pe := kerr.ErrorForCode(t.ErrorCode); pe != nil {
			return dr.Responses, kerr.Wrap(kerr.KindProtocol, "DeleteTopics "+t.Name, pe)
		}
	}
	return dr.Responses, nil
}

// CreatePartitions raises a topic's partition count to count.
func (a *Admin) CreatePartitions(ctx context.Context, timeout int32, topic string, count int32) error {
	req := &kproto.CreatePartitionsRequest{
		Topics:    []kproto.CreatePartitionsTopic{{Name: topic, Count: count}},
		TimeoutMs: timeout,
	}
	req.SetVersion(3)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return err
	}
	cr := resp.(*kproto.CreatePartitionsResponse)
	for _, t := range cr.Results {
		if pe := kerr.ErrorForCode(t.ErrorCode); pe != nil {
			return kerr.Wrap(kerr.KindProtocol, "CreatePartitions "+t.Name, pe)
		}
	}
	return nil
}

// DescribeConfigs fetches the configs for one or more topic resources.
func (a *Admin) DescribeConfigs(ctx context.Context, topics ...string) ([]kproto.DescribeConfigsResult, error) {
	req := &kproto.DescribeConfigsRequest{IncludeSynonyms: false}
	for _, name := range topics {
		req.Resources = append(req.Resources, kproto.DescribeConfigsResource{
			Type: kproto.ConfigResourceTopic,
			Name: name,
		})
	}
	req.SetVersion(4)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return nil, err
	}
	dr := resp.(*kproto.DescribeConfigsResponse)
	for _, res := range dr.Results {
		if pe := kerr.ErrorForCode(res.ErrorCode); pe != nil {
			return dr.Results, kerr.Wrap(kerr.KindProtocol, "DescribeConfigs "+res.Name, pe)
		}
	}
	return dr.Results, nil
}

// AlterConfigs sets topic configs, replacing any existing value for each
// named key.
func (a *Admin) AlterConfigs(ctx context.Context, topic string, configs map[string]string) error {
	res := kproto.AlterConfigsResource{Type: kproto.ConfigResourceTopic, Name: topic}
	for k, v := range configs {
		val := v
		res.Configs = append(res.Configs, kproto.AlterableConfig{Name: k, Value: &val})
	}
	req := &kproto.AlterConfigsRequest{Resources: []kproto.AlterConfigsResource{res}}
	req.SetVersion(2)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return err
	}
	ar := resp.(*kproto.AlterConfigsResponse)
	for _, r := range ar.Responses {
		if pe := kerr.ErrorForCode(r.ErrorCode); pe != nil {
			return kerr.Wrap(kerr.KindProtocol, "AlterConfigs "+r.Name, pe)
		}
	}
	return nil
}

// Acl describes one access-control entry.
type Acl struct {
	ResourceType        int8
	ResourceName        string
	ResourcePatternType int8
	Principal           string
	Host                string
	Operation           int8
	PermissionType      int8
}

// CreateAcls installs one or more ACLs in a single RPC.
func (a *Admin) CreateAcls(ctx context.Context, acls ...Acl) error {
	req := &kproto.CreateAclsRequest{}
	for _, acl := range acls {
		req.Creations = append(req.Creations, kproto.AclCreation{
			ResourceType:        acl.ResourceType,
			ResourceName:        acl.ResourceName,
			ResourcePatternType: acl.ResourcePatternType,
			Principal:           acl.Principal,
			Host:                acl.Host,
			Operation:           acl.Operation,
			PermissionType:      acl.PermissionType,
		})
	}
	req.SetVersion(3)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return err
	}
	cr := resp.(*kproto.CreateAclsResponse)
	for _, r := range cr.Results {
		if pe := kerr.ErrorForCode(r.ErrorCode); pe != nil {
			return kerr.Wrap(kerr.KindProtocol, "CreateAcls", pe)
		}
	}
	return nil
}

// DescribeAcls lists ACLs matching a filter. An empty ResourceName,
// Principal or Host is sent as null and matches anything; the resource
// type, pattern type, operation and permission type are sent as given.
func (a *Admin) DescribeAcls(ctx context.Context, filter Acl) ([]kproto.DescribeAclsResource, error) {
	req := &kproto.DescribeAclsRequest{
		ResourceTypeFilter:        filter.ResourceType,
		ResourcePatternTypeFilter: filter.ResourcePatternType,
		Operation:                 filter.Operation,
		PermissionType:            filter.PermissionType,
	}
	if filter.ResourceName != "" {
		req.ResourceNameFilter = &filter.ResourceName
	}
	if filter.Principal != "" {
		req.PrincipalFilter = &filter.Principal
	}
	if filter.Host != "" {
		req.HostFilter = &filter.Host
	}
	req.SetVersion(3)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return nil, err
	}
	dr := resp.(*kproto.DescribeAclsResponse)
	if pe := kerr.ErrorForCode(dr.ErrorCode); pe != nil {
		return nil, kerr.Wrap(kerr.KindProtocol, "DescribeAcls", pe)
	}
	return dr.Resources, nil
}

// DeleteAcls removes ACLs matching one or more filters.
func (a *Admin) DeleteAcls(ctx context.Context, filters ...Acl) ([]kproto.DeleteAclsFilterResult, error) {
	req := &kproto.DeleteAclsRequest{}
	for _, f := range filters {
		filt := kproto.DeleteAclsFilter{
			ResourceTypeFilter:        f.ResourceType,
			ResourcePatternTypeFilter: f.ResourcePatternType,
			Operation:                 f.Operation,
			PermissionType:            f.PermissionType,
		}
		if f.ResourceName != "" {
			filt.ResourceNameFilter = &f.ResourceName
		}
		if f.Principal != "" {
			filt.PrincipalFilter = &f.Principal
		}
		if f.Host != "" {
			filt.HostFilter = &f.Host
		}
		req.Filters = append(req.Filters, filt)
	}
	req.SetVersion(3)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return nil, err
	}
	dr := resp.(*kproto.DeleteAclsResponse)
	for _, fr := range dr.FilterResults {
		if pe := kerr.ErrorForCode(fr.ErrorCode); pe != nil {
			return dr.FilterResults, kerr.Wrap(kerr.KindProtocol, "DeleteAcls", pe)
		}
	}
	return dr.FilterResults, nil
}

// ListGroups returns every consumer group known to the cluster,
// optionally restricted to states (e.g. "Stable", "Empty").
func (a *Admin) ListGroups(ctx context.Context, states ...string) ([]kproto.ListedGroup, error) {
	req := &kproto.ListGroupsRequest{StatesFilter: states}
	req.SetVersion(4)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return nil, err
	}
	lr := resp.(*kproto.ListGroupsResponse)
	if pe := kerr.ErrorForCode(lr.ErrorCode); pe != nil {
		return nil, kerr.Wrap(kerr.KindProtocol, "ListGroups", pe)
	}
	return lr.Groups, nil
}

// DescribeGroups fetches full member/assignment detail for the named
// groups.
func (a *Admin) DescribeGroups(ctx context.Context, groups ...string) ([]kproto.DescribedGroup, error) {
	req := &kproto.DescribeGroupsRequest{Groups: groups}
	req.SetVersion(5)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return nil, err
	}
	dr := resp.(*kproto.DescribeGroupsResponse)
	for _, g := range dr.Groups {
		if pe := kerr.ErrorForCode(g.ErrorCode); pe != nil {
			return dr.Groups, kerr.Wrap(kerr.KindProtocol, "DescribeGroups "+g.GroupID, pe)
		}
	}
	return dr.Groups, nil
}

// DeleteGroups removes empty consumer groups by id.
func (a *Admin) DeleteGroups(ctx context.Context, groups ...string) ([]kproto.DeletableGroupResult, error) {
	req := &kproto.DeleteGroupsRequest{Groups: groups}
	req.SetVersion(2)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return nil, err
	}
	dr := resp.(*kproto.DeleteGroupsResponse)
	for _, r := range dr.Results {
		if pe := kerr.ErrorForCode(r.ErrorCode); pe != nil {
			return dr.Results, kerr.Wrap(kerr.KindProtocol, "DeleteGroups "+r.GroupID, pe)
		}
	}
	return dr.Results, nil
}

// DeleteOffsets removes a group's committed offsets for the given
// partitions, e.g. to let a group reconsume a topic from scratch.
func (a *Admin) DeleteOffsets(ctx context.Context, group string, partitions map[string][]int32) error {
	req := &kproto.OffsetDeleteRequest{GroupID: group}
	for topic, parts := range partitions {
		t := kproto.OffsetDeleteTopic{Name: topic}
		for _, p := range parts {
			t.Partitions = append(t.Partitions, kproto.OffsetDeletePartition{Index: p})
		}
		req.Topics = append(req.Topics, t)
	}
	req.SetVersion(0)

	resp, err := a.client.Admin(ctx, req)
	if err != nil {
		return err
	}
	dr := resp.(*kproto.OffsetDeleteResponse)
	if pe := kerr.ErrorForCode(dr.ErrorCode); pe != nil {
		return kerr.Wrap(kerr.KindProtocol, fmt.Sprintf("OffsetDelete %s", group), pe)
	}
	for _, t := range dr.Topics {
		for _, p := range t.Partitions {
			if pe := kerr.ErrorForCode(p.ErrorCode); pe != nil {
				return kerr.Wrap(kerr.KindProtocol, fmt.Sprintf("OffsetDelete %s %s[%d]", group, t.Name, p.Index), pe)
			}
		}
	}
	return nil
}
