// Copyright (c) 2024-2025 BeeAI Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package executor

import (
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

const runnerContainerName = "runner"

// buildPod renders the sandbox pod manifest. When ownerRef is non-nil the
// pod is owned by the interpreter's own pod, so orphaned sandboxes are
// garbage collected with the service.
func buildPod(config Config, name string, ownerRef *metav1.OwnerReference) (*corev1.Pod, error) {
	requests, err := resourceList(config.Resources.CPURequest, config.Resources.MemoryRequest)
	if err != nil {
		return nil, fmt.Errorf("resource requests: %s", err)
	}
	limits, err := resourceList(config.Resources.CPULimit, config.Resources.MemoryLimit)
	if err != nil {
		return nil, fmt.Errorf("resource limits: %s", err)
	}

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name: name,
			Labels: map[string]string{
				"app.kubernetes.io/name":      "interpreter-sandbox",
				"app.kubernetes.io/component": "runner",
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy:                corev1.RestartPolicyNever,
			AutomountServiceAccountToken: boolPtr(false),
			Containers: []corev1.Container{{
				Name:  runnerContainerName,
				Image: config.Image,
				Ports: []corev1.ContainerPort{{
					ContainerPort: int32(config.RunnerPort),
				}},
				Resources: corev1.ResourceRequirements{
					Requests: requests,
					Limits:   limits,
				},
				ReadinessProbe: &corev1.Probe{
					ProbeHandler: corev1.ProbeHandler{
						HTTPGet: &corev1.HTTPGetAction{
							Path: "/health",
							Port: intstr.FromInt(config.RunnerPort),
						},
					},
					InitialDelaySeconds: 1,
					PeriodSeconds:       1,
				},
			}},
		},
	}
	if ownerRef != nil {
		pod.OwnerReferences = []metav1.OwnerReference{*ownerRef}
	}
	if len(config.PodSpecExtra) > 0 {
		if err := overlaySpec(&pod.Spec, config.PodSpecExtra); err != nil {
			return nil, fmt.Errorf("pod spec overlay: %s", err)
		}
	}
	return pod, nil
}

// overlaySpec merges a free-form yaml/json overlay onto spec. Overlay fields
// replace the generated ones wholesale.
func overlaySpec(spec *corev1.PodSpec, extra map[string]interface{}) error {
	b, err := json.Marshal(normalizeKeys(extra))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, spec)
}

// normalizeKeys converts map[interface{}]interface{} values produced by the
// yaml parser into map[string]interface{} so they survive json.Marshal.
func normalizeKeys(v interface{}) interface{} {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = normalizeKeys(val)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[k] = normalizeKeys(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(v))
		for i, val := range v {
			s[i] = normalizeKeys(val)
		}
		return s
	default:
		return v
	}
}

func resourceList(cpu, memory string) (corev1.ResourceList, error) {
	cpuQ, err := resource.ParseQuantity(cpu)
	if err != nil {
		return nil, fmt.Errorf("parse cpu %q: %s", cpu, err)
	}
	memQ, err := resource.ParseQuantity(memory)
	if err != nil {
		return nil, fmt.Errorf("parse memory %q: %s", memory, err)
	}
	return corev1.ResourceList{
		corev1.ResourceCPU:    cpuQ,
		corev1.ResourceMemory: memQ,
	}, nil
}

func boolPtr(b bool) *bool { return &b }
